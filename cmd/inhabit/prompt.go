package main

// prompt.go: TUI prompt for stage configuration questions.

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"inhabit/internal/stage"
)

// promptModel is a bubbletea model that asks one question at a time.
type promptModel struct {
	questions []stage.Question
	idx       int
	inputs    []textinput.Model
	done      bool
}

func newPromptModel(questions []stage.Question) promptModel {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.Type
		if q.Optional {
			ti.Placeholder += " (optional)"
		}
		ti.CharLimit = 1024
		inputs[i] = ti
	}
	m := promptModel{
		questions: questions,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			// Required answers may not be blank.
			if !m.questions[m.idx].Optional && m.inputs[m.idx].Value() == "" {
				return m, nil
			}
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	return fmt.Sprintf("%s: %s\n", q.Prompt, m.inputs[m.idx].View())
}

// answers returns the entered values keyed by Question.Key.
func (m promptModel) answers() map[string]string {
	out := make(map[string]string, len(m.questions))
	for i, q := range m.questions {
		out[q.Key] = m.inputs[i].Value()
	}
	return out
}

// promptQuestions runs the TUI and returns answers keyed by Question.Key.
func promptQuestions(questions []stage.Question) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	p := tea.NewProgram(newPromptModel(questions))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, fmt.Errorf("prompt cancelled")
	}
	return final.answers(), nil
}
