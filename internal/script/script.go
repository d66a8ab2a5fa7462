// Package script answers router decision requests from a YAML file so orders
// can run unattended.
//
//	default: Done
//	replies:
//	  - kind: Pickup
//	    reply: Done
//	  - reply: NoStationLeft
//
// Replies are consumed in order. An entry with a kind only matches a request
// of that kind. Once the list is used up the default answers, if set.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/musher-dev/wdlplay/internal/model"
)

var (
	// ErrInvalid marks a script that cannot be parsed.
	ErrInvalid = errors.New("invalid reply script")
	// ErrExhausted is returned when no reply is left and there is no default.
	ErrExhausted = errors.New("reply script exhausted")
	// ErrKindMismatch is returned when the next entry expects another kind.
	ErrKindMismatch = errors.New("reply script out of step")
)

type fileFormat struct {
	Default string      `yaml:"default"`
	Replies []fileEntry `yaml:"replies"`
}

type fileEntry struct {
	Kind  string `yaml:"kind"`
	Reply string `yaml:"reply"`
}

// Entry is one scripted reply.
type Entry struct {
	Kind  *model.DecisionKind
	Reply model.DecisionReply
}

// Script hands out scripted replies. It is safe for concurrent use.
type Script struct {
	mu         sync.Mutex
	entries    []Entry
	next       int
	def        *model.DecisionReply
	answered   int
	sourcePath string
}

// Load reads a script from path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reply script: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.sourcePath = path

	return s, nil
}

// Parse decodes a script. Unknown fields, kinds and replies are rejected.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw fileFormat
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	s := &Script{}

	if raw.Default != "" {
		reply, err := model.ParseDecisionReply(raw.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: default: %w", ErrInvalid, err)
		}

		s.def = &reply
	}

	for i, fe := range raw.Replies {
		reply, err := model.ParseDecisionReply(fe.Reply)
		if err != nil {
			return nil, fmt.Errorf("%w: replies[%d]: %w", ErrInvalid, i, err)
		}

		entry := Entry{Reply: reply}

		if fe.Kind != "" {
			kind, err := model.ParseDecisionKind(fe.Kind)
			if err != nil {
				return nil, fmt.Errorf("%w: replies[%d]: %w", ErrInvalid, i, err)
			}

			entry.Kind = &kind
		}

		s.entries = append(s.entries, entry)
	}

	if len(s.entries) == 0 && s.def == nil {
		return nil, fmt.Errorf("%w: no replies and no default", ErrInvalid)
	}

	return s, nil
}

// Decide returns the reply for req.
func (s *Script) Decide(_ context.Context, req model.DecisionRequest) (model.DecisionReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next < len(s.entries) {
		entry := s.entries[s.next]

		if entry.Kind != nil && *entry.Kind != req.Kind {
			return 0, fmt.Errorf("%w: reply %d expects %s, got %s", ErrKindMismatch, s.next+1, *entry.Kind, req.Kind)
		}

		s.next++
		s.answered++

		return entry.Reply, nil
	}

	if s.def != nil {
		s.answered++
		return *s.def, nil
	}

	return 0, fmt.Errorf("%w after %d replies", ErrExhausted, s.answered)
}

// Remaining counts scripted entries not yet used.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries) - s.next
}

// Path returns the file the script was loaded from.
func (s *Script) Path() string {
	return s.sourcePath
}
