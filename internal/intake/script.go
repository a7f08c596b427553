package intake

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StepScript holds the two sentences attached to a field: Accept is spoken
// after a valid answer and leads into the next question, Retry is spoken
// when the answer did not parse. Accept may reference the captured value
// with a {value} placeholder.
type StepScript struct {
	Accept string `yaml:"accept"`
	Retry  string `yaml:"retry"`
}

// Script is the full set of assistant lines for one intake pass.
type Script struct {
	Greeting string                `yaml:"greeting"`
	Steps    map[string]StepScript `yaml:"steps"`
	Farewell string                `yaml:"farewell"`
}

// Step keys in the script file.
const (
	keyName        = "name"
	keyAge         = "age"
	keyHeight      = "height"
	keyWeight      = "weight"
	keySystolic    = "ap_hi"
	keyDiastolic   = "ap_lo"
	keySmoke       = "smoke"
	keyAlcohol     = "alco"
	keyActivity    = "active"
	keyCholesterol = "cholesterol"
	keyGlucose     = "gluc"
)

// DefaultScript returns the built-in assistant lines.
func DefaultScript() Script {
	return Script{
		Greeting: "Welcome. I am your AI Health Assistant. I will guide you through the assessment. First, please tell me your full name.",
		Steps: map[string]StepScript{
			keyName: {
				Accept: "Hello, {value}. How old are you?",
			},
			keyAge: {
				Accept: "Okay, {value} years old. What is your height in centimeters?",
				Retry:  "I didn't catch the number. Please say your age again.",
			},
			keyHeight: {
				Accept: "Got it. And what is your weight in kilograms?",
				Retry:  "Could you repeat your height in centimeters?",
			},
			keyWeight: {
				Accept: "Understood. Now, what is your systolic blood pressure? That's the top number.",
				Retry:  "Please say your weight again.",
			},
			keySystolic: {
				Accept: "And the diastolic, or bottom number?",
				Retry:  "I missed that. What is your systolic pressure?",
			},
			keyDiastolic: {
				Accept: "Do you smoke cigarettes? Please say yes or no.",
				Retry:  "Please repeat the diastolic pressure.",
			},
			keySmoke: {
				Accept: "Do you consume alcohol regularly?",
				Retry:  "Please answer with yes or no. Do you smoke?",
			},
			keyAlcohol: {
				Accept: "Do you exercise active lifestyle?",
				Retry:  "Yes or no, do you drink alcohol?",
			},
			keyActivity: {
				Accept: "Is your cholesterol level Normal, Elevated, or High?",
				Retry:  "Yes or no, are you active?",
			},
			keyCholesterol: {
				Accept: "Finally, is your glucose level Normal, Elevated, or High?",
				Retry:  "Please say Normal, Elevated, or High.",
			},
			keyGlucose: {
				Accept: "Thank you. Analyzing your health data now.",
				Retry:  "Please say Normal, Elevated, or High.",
			},
		},
		Farewell: "Take care of your heart. Goodbye.",
	}
}

// LoadScript reads a YAML script file and overlays it on the defaults, so a
// partial file only replaces the lines it names.
func LoadScript(path string) (Script, error) {
	base := DefaultScript()

	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read script: %w", err)
	}

	var over Script
	if err := yaml.Unmarshal(data, &over); err != nil {
		return base, fmt.Errorf("parse script: %w", err)
	}

	if over.Greeting != "" {
		base.Greeting = over.Greeting
	}
	if over.Farewell != "" {
		base.Farewell = over.Farewell
	}
	for key, sc := range over.Steps {
		cur, ok := base.Steps[key]
		if !ok {
			return base, fmt.Errorf("unknown script step %q", key)
		}
		if sc.Accept != "" {
			cur.Accept = sc.Accept
		}
		if sc.Retry != "" {
			cur.Retry = sc.Retry
		}
		base.Steps[key] = cur
	}

	return base, nil
}

func (s Script) accept(key string, value string) string {
	return strings.ReplaceAll(s.Steps[key].Accept, "{value}", value)
}

func (s Script) retry(key string) string {
	return s.Steps[key].Retry
}
