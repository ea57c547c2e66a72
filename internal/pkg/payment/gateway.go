package payment

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Gateway 支付网关的出站接口，只覆盖订阅创建与取消
type Gateway interface {
	Name() string
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*CreatedSubscription, error)
	CancelSubscription(ctx context.Context, externalID string) error
}

type CreateSubscriptionRequest struct {
	PlanID string
	UserID int64
	Notes  map[string]string
}

type CreatedSubscription struct {
	ID          string
	CheckoutURL string
}

// Mock 本地网关实现，生成 sub_ 前缀的订阅 ID
type Mock struct {
	name string

	mu        sync.Mutex
	created   []string
	cancelled []string
	failWith  error
}

func NewMock(name string) *Mock {
	return &Mock{name: name}
}

func (m *Mock) Name() string {
	return m.name
}

// FailWith 之后所有调用返回该错误，nil 恢复正常
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *Mock) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*CreatedSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	id := "sub_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	m.created = append(m.created, id)
	return &CreatedSubscription{
		ID:          id,
		CheckoutURL: "https://checkout." + m.name + ".mock/" + id,
	}, nil
}

func (m *Mock) CancelSubscription(ctx context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.cancelled = append(m.cancelled, externalID)
	return nil
}

// Cancelled 已取消的订阅 ID
func (m *Mock) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}
