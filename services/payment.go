package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/Zazh/dpa-lms-sub000/config"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ChargeRequest is a course purchase charge.
type ChargeRequest struct {
	UserID   uint   `json:"user_id"`
	CourseID uint   `json:"course_id"`
	Amount   int64  `json:"amount"` // minor currency units
	Token    string `json:"token"`  // opaque payment token from the client
}

// ChargeResult reports the gateway's decision.
type ChargeResult struct {
	Reference string `json:"reference"`
	Paid      bool   `json:"paid"`
}

// PaymentGateway charges course purchases. The engine only needs the
// paid/unpaid decision; reconciliation is out of scope.
type PaymentGateway interface {
	Charge(req ChargeRequest) (ChargeResult, error)
}

// RestPaymentGateway calls the external payment API.
type RestPaymentGateway struct {
	client  *resty.Client
	baseURL string
}

func NewRestPaymentGateway() *RestPaymentGateway {
	cfg := config.AppConfig
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetHeader("Content-Type", "application/json")
	if cfg.PaymentApiKey != "" {
		client.SetAuthToken(cfg.PaymentApiKey)
	}
	return &RestPaymentGateway{client: client, baseURL: cfg.PaymentApiURL}
}

func (g *RestPaymentGateway) Charge(req ChargeRequest) (ChargeResult, error) {
	var result ChargeResult
	resp, err := g.client.R().
		SetBody(req).
		SetResult(&result).
		Post(g.baseURL + "charges")
	if err != nil {
		return ChargeResult{}, err
	}
	if resp.IsError() {
		return ChargeResult{}, fmt.Errorf("payment api responded %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

// MemoryPaymentGateway approves every charge and records it. Used in tests
// and local development instead of a process-wide stub.
type MemoryPaymentGateway struct {
	mu      sync.Mutex
	Charges []ChargeRequest
}

func NewMemoryPaymentGateway() *MemoryPaymentGateway {
	return &MemoryPaymentGateway{}
}

func (g *MemoryPaymentGateway) Charge(req ChargeRequest) (ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Charges = append(g.Charges, req)
	return ChargeResult{Reference: uuid.NewString(), Paid: true}, nil
}
