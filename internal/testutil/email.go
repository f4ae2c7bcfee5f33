package testutil

import (
	"sync"

	"campuskey/internal/email"
)

// SentEmail captures one email handed to the mock mailer
type SentEmail struct {
	To    string
	Name  string
	Token string
	Kind  string // "reset" or "verification"
}

// MockEmailService records sent emails instead of delivering them
type MockEmailService struct {
	mu   sync.Mutex
	Sent []SentEmail
}

// NewMockEmailService creates an empty mock mailer
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

var _ email.EmailSender = (*MockEmailService)(nil)

func (s *MockEmailService) SendPasswordResetEmail(to, name, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, SentEmail{To: to, Name: name, Token: token, Kind: "reset"})
	return nil
}

func (s *MockEmailService) SendVerificationEmail(to, name, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, SentEmail{To: to, Name: name, Token: token, Kind: "verification"})
	return nil
}

// LastToken returns the token of the most recently sent email of kind, or
// empty when none was sent.
func (s *MockEmailService) LastToken(kind string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Sent) - 1; i >= 0; i-- {
		if s.Sent[i].Kind == kind {
			return s.Sent[i].Token
		}
	}
	return ""
}
