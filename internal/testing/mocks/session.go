package mocks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	zerrors "github.com/dl-alexandre/zsync/internal/errors"
	"github.com/dl-alexandre/zsync/internal/utils"
)

// MockSession is an in-memory z/OS host: partitioned data sets holding
// members. Every command is appended to Calls as "verb argument".
type MockSession struct {
	Containers map[string]map[string][]byte
	Calls      []string
	Reply      string
	Connected  bool

	// AutoCreate lets a store succeed into a data set that was never created.
	AutoCreate bool
	// UntypedReply makes a store into a missing data set fail with a plain
	// error, leaving only the reply text to identify the cause.
	UntypedReply bool
	// LostCreate makes MKD report success without allocating the data set.
	LostCreate bool

	ConnectErr error
	LoginErr   error
	CreateErr  error
	AllocErr   error
	DeleteErr  error
	// StoreErr fails the next store of a member, once.
	StoreErr map[string]error

	AllocParams []string
}

// NewMockSession creates a session whose host already has the given data sets.
func NewMockSession(containers ...string) *MockSession {
	s := &MockSession{
		Containers: make(map[string]map[string][]byte),
		StoreErr:   make(map[string]error),
	}
	for _, c := range containers {
		s.Containers[c] = make(map[string][]byte)
	}
	return s
}

// splitName turns "A.B(M)" into "A.B" and "M".
func splitName(name string) (string, string) {
	open := strings.IndexByte(name, '(')
	if open < 0 {
		return name, ""
	}
	return name[:open], strings.TrimSuffix(name[open+1:], ")")
}

func (s *MockSession) record(verb, arg string) {
	s.Calls = append(s.Calls, verb+" "+arg)
}

func (s *MockSession) Connect(ctx context.Context, host string) error {
	s.record("connect", host)
	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.Connected = true
	s.Reply = "220 FTP server ready"
	return nil
}

func (s *MockSession) Login(ctx context.Context, user, password string) error {
	s.record("login", user)
	if s.LoginErr != nil {
		s.Reply = "530 PASS command failed"
		return s.LoginErr
	}
	s.Reply = "230 " + strings.ToUpper(user) + " is logged on"
	return nil
}

func (s *MockSession) Store(ctx context.Context, name string, r io.Reader) error {
	s.record("store", name)
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := s.StoreErr[name]; err != nil {
		delete(s.StoreErr, name)
		s.Reply = "550 disk full"
		return err
	}

	container, member := splitName(name)
	members, ok := s.Containers[container]
	if !ok && s.AutoCreate {
		members = make(map[string][]byte)
		s.Containers[container] = members
		ok = true
	}
	if !ok {
		s.Reply = "550-SVC99 RETURN CODE = 4 S99INFO = 0 S99ERROR = 38668\n550 " + utils.MissingContainerReply
		if s.UntypedReply {
			return errors.New("store rejected")
		}
		return fmt.Errorf("store rejected: %w", zerrors.ErrContainerMissing)
	}
	members[member] = data
	s.Reply = "250 Transfer completed successfully."
	return nil
}

func (s *MockSession) CreateContainer(ctx context.Context, name string) error {
	s.record("mkd", name)
	if s.CreateErr != nil {
		s.Reply = "550 create failed"
		return s.CreateErr
	}
	if _, ok := s.Containers[name]; !ok && !s.LostCreate {
		s.Containers[name] = make(map[string][]byte)
	}
	s.Reply = "257 '" + name + "' created."
	return nil
}

func (s *MockSession) SetAllocationParameters(ctx context.Context, params string) error {
	s.record("site", params)
	s.AllocParams = append(s.AllocParams, params)
	return s.AllocErr
}

func (s *MockSession) Delete(ctx context.Context, name string) error {
	s.record("dele", name)
	if s.DeleteErr != nil {
		s.Reply = "550 member in use"
		return s.DeleteErr
	}
	container, member := splitName(name)
	delete(s.Containers[container], member)
	s.Reply = "250 '" + name + "' deleted."
	return nil
}

func (s *MockSession) LastError() string { return s.Reply }
func (s *MockSession) IsConnected() bool { return s.Connected }

func (s *MockSession) Logout(ctx context.Context) error {
	s.Calls = append(s.Calls, "quit")
	s.Connected = false
	return nil
}

// Member returns the stored content of "A.B(M)".
func (s *MockSession) Member(name string) ([]byte, bool) {
	container, member := splitName(name)
	data, ok := s.Containers[container][member]
	return data, ok
}

// Stores lists the member names of every store command, in order.
func (s *MockSession) Stores() []string {
	return s.Commands("store")
}

// Commands lists the arguments of every call with the given verb, in order.
func (s *MockSession) Commands(verb string) []string {
	var out []string
	for _, c := range s.Calls {
		if strings.HasPrefix(c, verb+" ") {
			out = append(out, strings.TrimPrefix(c, verb+" "))
		}
	}
	return out
}

// Reset forgets the recorded calls.
func (s *MockSession) Reset() {
	s.Calls = nil
}
