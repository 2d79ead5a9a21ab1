package executor

import (
	"context"
	"io"
)

// Session is the remote repository connection used for one run. Methods
// return an error when the server rejects the command; LastError holds the
// server's reply text for the most recent command.
type Session interface {
	Connect(ctx context.Context, host string) error
	Login(ctx context.Context, user, password string) error
	Store(ctx context.Context, remoteName string, content io.Reader) error
	CreateContainer(ctx context.Context, name string) error
	SetAllocationParameters(ctx context.Context, params string) error
	Delete(ctx context.Context, remoteName string) error
	LastError() string
	IsConnected() bool
	Logout(ctx context.Context) error
}
