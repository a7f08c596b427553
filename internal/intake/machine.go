package intake

import (
	"strconv"
	"strings"
)

// Step identifies which field the machine is currently collecting.
type Step int

const (
	StepIdle Step = iota
	StepName
	StepAge
	StepHeight
	StepWeight
	StepSystolic
	StepDiastolic
	StepSmoke
	StepAlcohol
	StepActivity
	StepCholesterol
	StepGlucose
	StepSubmit
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepName:
		return "name"
	case StepAge:
		return "age"
	case StepHeight:
		return "height"
	case StepWeight:
		return "weight"
	case StepSystolic:
		return "systolic"
	case StepDiastolic:
		return "diastolic"
	case StepSmoke:
		return "smoke"
	case StepAlcohol:
		return "alcohol"
	case StepActivity:
		return "activity"
	case StepCholesterol:
		return "cholesterol"
	case StepGlucose:
		return "glucose"
	case StepSubmit:
		return "submit"
	default:
		return "step(" + strconv.Itoa(int(s)) + ")"
	}
}

// Outcome is what one transition asks the caller to do next.
type Outcome struct {
	Step     Step   // step after the transition
	Prompt   string // sentence to synthesize
	Accepted bool   // the utterance was parsed and recorded
	Listen   bool   // capture another utterance after the prompt
	Submit   bool   // record complete, hand off to prediction
}

// Machine is the intake wizard as an explicit state machine: feed it one
// utterance at a time and act on the returned Outcome. It never touches a
// speech engine, which is what makes it testable with synthetic input.
//
// The step only moves forward; a failed parse re-prompts in place with no
// retry cap.
type Machine struct {
	script Script
	step   Step
	rec    Record
}

func NewMachine(script Script) *Machine {
	return &Machine{script: script, rec: NewRecord()}
}

func (m *Machine) Step() Step     { return m.step }
func (m *Machine) Record() Record { return m.rec }
func (m *Machine) Done() bool     { return m.step == StepSubmit }

// Start leaves Idle and returns the greeting, which ends by asking for the
// first field.
func (m *Machine) Start() Outcome {
	m.step = StepName
	return Outcome{Step: m.step, Prompt: m.script.Greeting, Listen: true}
}

// Reset aborts the session: back to Idle with a fresh record.
func (m *Machine) Reset() {
	m.step = StepIdle
	m.rec = NewRecord()
}

// Repeat re-prompts the current step without consuming anything, used when
// a capture attempt failed outright.
func (m *Machine) Repeat() Outcome {
	key := m.stepKey()
	if key == "" {
		return Outcome{Step: m.step}
	}
	prompt := m.script.retry(key)
	if prompt == "" {
		prompt = m.script.Greeting
	}
	return Outcome{Step: m.step, Prompt: prompt, Listen: true}
}

// Feed consumes one utterance for the current step. Parsing is
// case-insensitive; the name is stored verbatim.
func (m *Machine) Feed(utterance string) Outcome {
	text := strings.ToLower(utterance)

	switch m.step {
	case StepName:
		m.rec.Name = strings.TrimSpace(utterance)
		return m.accept(keyName, m.rec.Name)

	case StepAge:
		return m.feedInt(text, keyAge, &m.rec.Age)
	case StepHeight:
		return m.feedInt(text, keyHeight, &m.rec.Height)
	case StepWeight:
		return m.feedInt(text, keyWeight, &m.rec.Weight)
	case StepSystolic:
		return m.feedInt(text, keySystolic, &m.rec.ApHi)
	case StepDiastolic:
		return m.feedInt(text, keyDiastolic, &m.rec.ApLo)

	case StepSmoke:
		return m.feedBool(text, keySmoke, &m.rec.Smoke)
	case StepAlcohol:
		return m.feedBool(text, keyAlcohol, &m.rec.Alco)
	case StepActivity:
		return m.feedBool(text, keyActivity, &m.rec.Active)

	case StepCholesterol:
		return m.feedLevel(text, keyCholesterol, &m.rec.Cholesterol)
	case StepGlucose:
		return m.feedLevel(text, keyGlucose, &m.rec.Gluc)

	default:
		// Idle and Submit have no field to fill.
		return Outcome{Step: m.step}
	}
}

func (m *Machine) feedInt(text, key string, field *int) Outcome {
	n, ok := FirstInt(text)
	if !ok {
		return m.reject(key)
	}
	*field = n
	return m.accept(key, strconv.Itoa(n))
}

func (m *Machine) feedBool(text, key string, field *int) Outcome {
	yes, ok := YesNo(text)
	if !ok {
		return m.reject(key)
	}
	if yes {
		*field = 1
	} else {
		*field = 0
	}
	return m.accept(key, text)
}

func (m *Machine) feedLevel(text, key string, field *Level) Outcome {
	lvl, ok := ParseLevel(text)
	if !ok {
		return m.reject(key)
	}
	*field = lvl
	return m.accept(key, lvl.String())
}

func (m *Machine) accept(key, value string) Outcome {
	prompt := m.script.accept(key, value)
	m.step++
	if m.step == StepSubmit {
		return Outcome{Step: m.step, Prompt: prompt, Accepted: true, Submit: true}
	}
	return Outcome{Step: m.step, Prompt: prompt, Accepted: true, Listen: true}
}

func (m *Machine) reject(key string) Outcome {
	return Outcome{Step: m.step, Prompt: m.script.retry(key), Listen: true}
}

func (m *Machine) stepKey() string {
	switch m.step {
	case StepName:
		return keyName
	case StepAge:
		return keyAge
	case StepHeight:
		return keyHeight
	case StepWeight:
		return keyWeight
	case StepSystolic:
		return keySystolic
	case StepDiastolic:
		return keyDiastolic
	case StepSmoke:
		return keySmoke
	case StepAlcohol:
		return keyAlcohol
	case StepActivity:
		return keyActivity
	case StepCholesterol:
		return keyCholesterol
	case StepGlucose:
		return keyGlucose
	default:
		return ""
	}
}
