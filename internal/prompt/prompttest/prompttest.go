// Package prompttest provides a scripted prompt.Prompter for tests.
package prompttest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/prompt"
)

type answerKind int

const (
	kindSelect answerKind = iota
	kindInput
	kindDefault
	kindConfirm
	kindAbort
)

func (k answerKind) String() string {
	switch k {
	case kindSelect:
		return "select"
	case kindInput, kindDefault:
		return "input"
	case kindConfirm:
		return "confirm"
	default:
		return "abort"
	}
}

type answer struct {
	kind  answerKind
	value string
	yes   bool
}

// Menu records one Select call.
type Menu struct {
	Title   string
	Choices []prompt.Choice
}

// Labels returns the labels of the menu's choices.
func (m Menu) Labels() []string {
	labels := make([]string, len(m.Choices))
	for i, c := range m.Choices {
		labels[i] = c.Label
	}
	return labels
}

// Scripted answers prompts from a queue. Answers are consumed in order and
// must match the kind of prompt asked. Once the queue is empty every prompt
// fails with prompt.ErrAborted, which unwinds the lifecycle loops.
type Scripted struct {
	mu      sync.Mutex
	answers []answer

	Asked  []string
	Menus  []Menu
	Infos  []string
	Errors []string
}

// New returns an empty script.
func New() *Scripted {
	return &Scripted{}
}

// Choose queues a Select answer by choice value.
func (s *Scripted) Choose(value string) *Scripted {
	return s.push(answer{kind: kindSelect, value: value})
}

// Type queues an Input answer.
func (s *Scripted) Type(text string) *Scripted {
	return s.push(answer{kind: kindInput, value: text})
}

// Accept queues an Input answer keeping the field's default.
func (s *Scripted) Accept() *Scripted {
	return s.push(answer{kind: kindDefault})
}

// Answer queues a Confirm answer.
func (s *Scripted) Answer(yes bool) *Scripted {
	return s.push(answer{kind: kindConfirm, yes: yes})
}

// Abort makes the next prompt of any kind fail with prompt.ErrAborted.
func (s *Scripted) Abort() *Scripted {
	return s.push(answer{kind: kindAbort})
}

// Remaining returns the number of unconsumed answers.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *Scripted) push(a answer) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, a)
	return s
}

func (s *Scripted) next(title string, kinds ...answerKind) (answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, title)

	if len(s.answers) == 0 {
		return answer{}, errors.Wrapf(prompt.ErrAborted, "no scripted answer for %q", title)
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	if a.kind == kindAbort {
		return answer{}, prompt.ErrAborted
	}
	if !slices.Contains(kinds, a.kind) {
		return answer{}, fmt.Errorf("prompt %q: scripted %s answer, but asked for %s", title, a.kind, kinds[0])
	}
	return a, nil
}

// Select implements prompt.Prompter.
func (s *Scripted) Select(_ context.Context, title string, choices []prompt.Choice, _ string) (string, error) {
	s.mu.Lock()
	s.Menus = append(s.Menus, Menu{Title: title, Choices: slices.Clone(choices)})
	s.mu.Unlock()

	a, err := s.next(title, kindSelect)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if c.Value == a.value {
			return a.value, nil
		}
	}
	return "", fmt.Errorf("prompt %q: scripted choice %q is not offered", title, a.value)
}

// Input implements prompt.Prompter. The field's validator runs on the
// scripted text and its error is returned as is.
func (s *Scripted) Input(_ context.Context, field prompt.Field) (string, error) {
	a, err := s.next(field.Title, kindInput, kindDefault)
	if err != nil {
		return "", err
	}
	value := a.value
	if a.kind == kindDefault {
		value = field.Default
	}
	if field.Validate != nil {
		if err := field.Validate(value); err != nil {
			return "", err
		}
	}
	return value, nil
}

// Confirm implements prompt.Prompter.
func (s *Scripted) Confirm(_ context.Context, title string, _ bool) (bool, error) {
	a, err := s.next(title, kindConfirm)
	if err != nil {
		return false, err
	}
	return a.yes, nil
}

// Info implements prompt.Prompter.
func (s *Scripted) Info(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Infos = append(s.Infos, msg)
}

// Error implements prompt.Prompter.
func (s *Scripted) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, msg)
}

var _ prompt.Prompter = (*Scripted)(nil)
