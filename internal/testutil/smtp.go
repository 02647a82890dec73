package testutil

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/emersion/go-smtp"
)

// ReceivedMessage is one mail accepted by the test server.
type ReceivedMessage struct {
	From string
	To   []string
	Data []byte
}

// MemoryBackend stores every delivered message in memory.
type MemoryBackend struct {
	mu       sync.Mutex
	messages []ReceivedMessage
	rejectTo map[string]bool
}

// NewSession creates a new SMTP session.
func (b *MemoryBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &memorySession{backend: b}, nil
}

// Messages returns a copy of all received messages.
func (b *MemoryBackend) Messages() []ReceivedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ReceivedMessage, len(b.messages))
	copy(out, b.messages)
	return out
}

// RejectRecipient makes RCPT TO fail permanently for addr.
func (b *MemoryBackend) RejectRecipient(addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectTo[addr] = true
}

type memorySession struct {
	backend *MemoryBackend
	from    string
	to      []string
}

func (s *memorySession) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *memorySession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.backend.mu.Lock()
	rejected := s.backend.rejectTo[to]
	s.backend.mu.Unlock()
	if rejected {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 1, 1}, Message: "mailbox unavailable"}
	}
	s.to = append(s.to, to)
	return nil
}

func (s *memorySession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.messages = append(s.backend.messages, ReceivedMessage{From: s.from, To: s.to, Data: data})
	return nil
}

func (s *memorySession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *memorySession) Logout() error {
	return nil
}

// TestSMTPServer is an SMTP server on a random local port.
type TestSMTPServer struct {
	Address string
	Backend *MemoryBackend
}

// NewTestSMTPServer starts a server that keeps messages in memory and shuts
// down with the test.
func NewTestSMTPServer(t *testing.T) *TestSMTPServer {
	t.Helper()

	be := &MemoryBackend{rejectTo: map[string]bool{}}
	s := smtp.NewServer(be)
	s.Domain = "localhost"
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	go func() {
		if err := s.Serve(listener); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			t.Logf("smtp server error: %v", err)
		}
	}()
	t.Cleanup(func() { _ = s.Close() })

	return &TestSMTPServer{Address: listener.Addr().String(), Backend: be}
}
