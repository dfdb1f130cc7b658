package assistant

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockReplyGenerator struct {
	mock.Mock
}

func (m *MockReplyGenerator) MaybeReply(ctx context.Context, body string) (string, error) {
	args := m.Called(ctx, body)
	return args.String(0), args.Error(1)
}
