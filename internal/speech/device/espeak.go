package device

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

int
alive_say(const char *text)
{
	if (!text)
	{ return -1; }

	espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
	espeak_VOICE specs = { .languages = "en" };
	espeak_SetVoiceByProperties(&specs);

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}

void
alive_hush(void)
{
	espeak_Cancel();
}
*/
import "C"

import (
	"context"
	"fmt"
	"unsafe"
)

// Synthesizer speaks through espeak-ng. Playback is synchronous, which fits
// the engine contract: Speak returns when the utterance has been played.
type Synthesizer struct{}

func NewSynthesizer() *Synthesizer { return &Synthesizer{} }

func (s *Synthesizer) Speak(_ context.Context, text string) error {
	if text == "" {
		return nil
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.alive_say(ctext); rc != 0 {
		return fmt.Errorf("espeak synth failed: %d", int(rc))
	}
	return nil
}

// Cancel stops whatever espeak is currently playing.
func (s *Synthesizer) Cancel() {
	C.alive_hush()
}
