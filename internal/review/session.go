// Package review holds the per-session reducer a user drives while reviewing
// model-generated flashcard proposals, and the submission of the accepted subset.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	domain "github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusEdited   Status = "edited"
	StatusRejected Status = "rejected"
)

var (
	ErrUnresolved      = errors.New("review: proposals still pending")
	ErrNothingSelected = errors.New("nothing selected")
	ErrUnknownProposal = apperrors.NotFound("proposal_not_found", "Proposal not found")
)

type Proposal struct {
	ID            int
	Front         string
	Back          string
	Status        Status
	OriginalFront string
	OriginalBack  string
	edited        bool
}

// Submitter persists an accepted batch.
type Submitter interface {
	Submit(ctx context.Context, cmd domain.CreateFlashcardsCommand) ([]domain.FlashcardDTO, error)
}

// Session is not safe for concurrent use.
type Session struct {
	generationID *int64
	proposals    []*Proposal
}

// NewSession assigns ids 1..n in input order; every proposal starts pending.
func NewSession(generationID *int64, proposals []domain.FlashcardProposal) *Session {
	s := &Session{generationID: generationID, proposals: make([]*Proposal, 0, len(proposals))}
	for i, p := range proposals {
		s.proposals = append(s.proposals, &Proposal{
			ID:     i + 1,
			Front:  p.Front,
			Back:   p.Back,
			Status: StatusPending,
		})
	}
	return s
}

func (s *Session) GenerationID() *int64 { return s.generationID }

// Proposals returns copies in id order.
func (s *Session) Proposals() []Proposal {
	out := make([]Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		out = append(out, *p)
	}
	return out
}

func (s *Session) find(id int) (*Proposal, error) {
	if id < 1 || id > len(s.proposals) {
		return nil, ErrUnknownProposal
	}
	return s.proposals[id-1], nil
}

func (s *Session) Accept(id int) error {
	p, err := s.find(id)
	if err != nil {
		return err
	}
	p.Status = StatusAccepted
	return nil
}

func (s *Session) Reject(id int) error {
	p, err := s.find(id)
	if err != nil {
		return err
	}
	p.Status = StatusRejected
	return nil
}

// Edit replaces the text and marks the proposal edited. The first edit records
// the values it replaced; later edits leave them alone.
func (s *Session) Edit(id int, front, back string) error {
	p, err := s.find(id)
	if err != nil {
		return err
	}
	front = strings.TrimSpace(front)
	back = strings.TrimSpace(back)
	if err := checkBounds(front, back); err != nil {
		return err
	}
	if !p.edited {
		p.OriginalFront = p.Front
		p.OriginalBack = p.Back
		p.edited = true
	}
	p.Front = front
	p.Back = back
	p.Status = StatusEdited
	return nil
}

func checkBounds(front, back string) error {
	switch {
	case front == "":
		return apperrors.Validation("front_required", "Front is required")
	case back == "":
		return apperrors.Validation("back_required", "Back is required")
	case utf8.RuneCountInString(front) > domain.MaxFrontLength:
		return apperrors.Validation("front_too_long", fmt.Sprintf("Front must be at most %d characters", domain.MaxFrontLength))
	case utf8.RuneCountInString(back) > domain.MaxBackLength:
		return apperrors.Validation("back_too_long", fmt.Sprintf("Back must be at most %d characters", domain.MaxBackLength))
	}
	return nil
}

// AcceptAll accepts every pending proposal.
func (s *Session) AcceptAll() {
	for _, p := range s.proposals {
		if p.Status == StatusPending {
			p.Status = StatusAccepted
		}
	}
}

func (s *Session) Resolved() bool {
	for _, p := range s.proposals {
		if p.Status == StatusPending {
			return false
		}
	}
	return true
}

func (s *Session) CommitEnabled() bool { return s.Resolved() }

func (s *Session) CommitVisible() bool { return len(s.proposals) > 0 }

// Selection returns the accepted and edited proposals as create inputs.
func (s *Session) Selection() []domain.CreateFlashcardInput {
	out := []domain.CreateFlashcardInput{}
	for _, p := range s.proposals {
		var src domain.Source
		switch p.Status {
		case StatusAccepted:
			src = domain.SourceAIFull
		case StatusEdited:
			src = domain.SourceAIEdited
		default:
			continue
		}
		out = append(out, domain.CreateFlashcardInput{
			Front:        p.Front,
			Back:         p.Back,
			Source:       src,
			GenerationID: s.generationID,
		})
	}
	return out
}

// Commit submits the selection as one batch and empties the session on success.
func (s *Session) Commit(ctx context.Context, sub Submitter) ([]domain.FlashcardDTO, error) {
	if !s.Resolved() {
		return nil, ErrUnresolved
	}
	sel := s.Selection()
	if len(sel) == 0 {
		return nil, ErrNothingSelected
	}
	out, err := sub.Submit(ctx, domain.CreateFlashcardsCommand{Flashcards: sel})
	if err != nil {
		return nil, err
	}
	s.proposals = nil
	s.generationID = nil
	return out, nil
}

// ClipboardText renders the selection as front<TAB>back lines for guests.
func (s *Session) ClipboardText() string {
	var b strings.Builder
	for i, in := range s.Selection() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(in.Front)
		b.WriteByte('\t')
		b.WriteString(in.Back)
	}
	return b.String()
}
