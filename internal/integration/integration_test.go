//go:build integration
// +build integration

package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	httpapi "github.com/negotiation-core/negotiation-core/internal/api/http"
	"github.com/negotiation-core/negotiation-core/internal/application/audit"
	"github.com/negotiation-core/negotiation-core/internal/application/booking"
	"github.com/negotiation-core/negotiation-core/internal/application/dispute"
	"github.com/negotiation-core/negotiation-core/internal/application/effects"
	"github.com/negotiation-core/negotiation-core/internal/application/exception"
	"github.com/negotiation-core/negotiation-core/internal/application/negotiation"
	"github.com/negotiation-core/negotiation-core/internal/application/notification"
	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/lock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/postgres"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/sse"
)

const auditKeyHex = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
const testJWTSecret = "integration-test-secret"

var testDSN string

// TestMain uses TEST_DATABASE_URL when provided and otherwise starts a
// throwaway postgres container for the whole package run.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		testDSN = dsn
		os.Exit(m.Run())
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("negotiation_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres container: %v\n", err)
		os.Exit(1)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		fmt.Fprintf(os.Stderr, "container connection string: %v\n", err)
		os.Exit(1)
	}
	testDSN = dsn

	code := m.Run()
	if err := testcontainers.TerminateContainer(ctr); err != nil {
		fmt.Fprintf(os.Stderr, "terminate container: %v\n", err)
	}
	os.Exit(code)
}

func TestNegotiationFlowIntegration(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	client := &http.Client{Timeout: 10 * time.Second}
	customer := bearerToken(t, "customer-1", actor.RoleCustomer)
	transport := bearerToken(t, "transport-1", actor.RoleTransport)

	var b bookingResponse
	doJSON(t, client, http.MethodPost, server.URL+"/v1/bookings", customer, map[string]interface{}{
		"pickupLocation":   "12 Harbour St",
		"deliveryLocation": "9 Mill Rd",
		"windowStart":      time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"windowEnd":        time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"items": []map[string]interface{}{
			{"name": "piano", "quantity": 1, "isFragile": true},
		},
	}, &b)
	if b.Status != "PENDING" {
		t.Fatalf("new booking status = %s, want PENDING", b.Status)
	}

	var q quotationResponse
	doJSON(t, client, http.MethodPost, server.URL+"/v1/bookings/"+b.BookingID+"/quotations", transport, map[string]interface{}{
		"price": 500.0,
	}, &q)
	if q.ReferencePrice != 500 {
		t.Fatalf("reference price = %v, want 500", q.ReferencePrice)
	}

	var booked bookingResponse
	doJSON(t, client, http.MethodGet, server.URL+"/v1/bookings/"+b.BookingID, customer, nil, &booked)
	if booked.Status != "QUOTED" {
		t.Fatalf("booking after quotation = %s, want QUOTED", booked.Status)
	}

	var c counterOfferResponse
	doJSON(t, client, http.MethodPost, server.URL+"/v1/quotations/"+q.QuotationID+"/counter-offers", customer, map[string]interface{}{
		"offeredPrice": 400.0,
		"reason":       "above market rate",
	}, &c)
	if c.Status != "PENDING" {
		t.Fatalf("counter-offer status = %s, want PENDING", c.Status)
	}
	if c.PercentageChange != -20 {
		t.Fatalf("percentage change = %v, want -20", c.PercentageChange)
	}
	if c.HoursUntilExpiration == nil || *c.HoursUntilExpiration <= 0 {
		t.Fatalf("expected a positive response window, got %v", c.HoursUntilExpiration)
	}

	var accepted counterOfferResponse
	doJSON(t, client, http.MethodPost, server.URL+"/v1/counter-offers/"+c.CounterOfferID+"/respond", transport, map[string]interface{}{
		"accept": true,
	}, &accepted)
	if accepted.Status != "ACCEPTED" {
		t.Fatalf("counter-offer after accept = %s, want ACCEPTED", accepted.Status)
	}

	// Accepting the counter moved the quotation's reference price.
	var requoted quotationResponse
	doJSON(t, client, http.MethodGet, server.URL+"/v1/quotations/"+q.QuotationID, customer, nil, &requoted)
	if requoted.ReferencePrice != 400 {
		t.Fatalf("reference price after counter = %v, want 400", requoted.ReferencePrice)
	}

	doJSON(t, client, http.MethodPost, server.URL+"/v1/quotations/"+q.QuotationID+"/accept", customer, nil, nil)

	var confirmed bookingResponse
	doJSON(t, client, http.MethodGet, server.URL+"/v1/bookings/"+b.BookingID, customer, nil, &confirmed)
	if confirmed.Status != "CONFIRMED" {
		t.Fatalf("booking after accept = %s, want CONFIRMED", confirmed.Status)
	}
	if confirmed.AgreedPrice == nil || *confirmed.AgreedPrice != 400 {
		t.Fatalf("agreed price = %v, want 400", confirmed.AgreedPrice)
	}
	if confirmed.TransportID == nil || *confirmed.TransportID != "transport-1" {
		t.Fatalf("transport id = %v, want transport-1", confirmed.TransportID)
	}
}

func TestSSEDeliveryIntegration(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	client := &http.Client{Timeout: 10 * time.Second}
	customer := bearerToken(t, "customer-1", actor.RoleCustomer)
	transport := bearerToken(t, "transport-1", actor.RoleTransport)

	var b bookingResponse
	doJSON(t, client, http.MethodPost, server.URL+"/v1/bookings", customer, map[string]interface{}{
		"pickupLocation":   "12 Harbour St",
		"deliveryLocation": "9 Mill Rd",
		"windowStart":      time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"windowEnd":        time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}, &b)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// EventSource clients cannot set headers, so the stream authenticates
	// via the token query parameter.
	sseURL := server.URL + "/v1/notifications/sse?client_id=test-client&token=" + customer
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sseURL, nil)
	if err != nil {
		t.Fatalf("sse request: %v", err)
	}
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		t.Fatalf("sse connect: %v", err)
	}
	defer resp.Body.Close()

	msgCh := make(chan map[string]interface{}, 1)
	go func() {
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "data: ") {
				payload := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
				var msg map[string]interface{}
				if err := json.Unmarshal([]byte(payload), &msg); err == nil {
					msgCh <- msg
					return
				}
			}
		}
	}()

	// Give the hub a moment to register the client before the event fires.
	time.Sleep(200 * time.Millisecond)

	doJSON(t, client, http.MethodPost, server.URL+"/v1/bookings/"+b.BookingID+"/quotations", transport, map[string]interface{}{
		"price": 500.0,
	}, nil)

	select {
	case msg := <-msgCh:
		if msg["event"] != "QUOTATION_RECEIVED" {
			t.Fatalf("unexpected event: %v", msg["event"])
		}
		data, ok := msg["data"].(map[string]interface{})
		if !ok || data["recipientUserId"] != "customer-1" {
			t.Fatalf("unexpected SSE payload: %v", msg["data"])
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("SSE message not received")
	}
}

func TestAuditTrailIntegration(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	client := &http.Client{Timeout: 10 * time.Second}
	customer := bearerToken(t, "customer-1", actor.RoleCustomer)
	manager := bearerToken(t, "manager-1", actor.RoleManager)

	var b bookingResponse
	doJSON(t, client, http.MethodPost, server.URL+"/v1/bookings", customer, map[string]interface{}{
		"pickupLocation":   "12 Harbour St",
		"deliveryLocation": "9 Mill Rd",
		"windowStart":      time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"windowEnd":        time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}, &b)

	// Audit rows are written asynchronously; poll until they land.
	var logs []auditLogResponse
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var res struct {
			Logs []auditLogResponse `json:"logs"`
		}
		doJSON(t, client, http.MethodGet, server.URL+"/v1/admin/audit?targetType=BOOKING&targetId="+b.BookingID, manager, nil, &res)
		if len(res.Logs) > 0 {
			logs = res.Logs
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if len(logs) == 0 {
		t.Fatalf("no audit logs recorded for booking %s", b.BookingID)
	}
	if logs[0].Action != "BOOKING_CREATED" {
		t.Fatalf("audit action = %s, want BOOKING_CREATED", logs[0].Action)
	}
	if logs[0].Actor != "customer-1" {
		t.Fatalf("audit actor = %s, want customer-1", logs[0].Actor)
	}

	var verify struct {
		Verified bool `json:"verified"`
	}
	doJSON(t, client, http.MethodGet, server.URL+"/v1/admin/audit/"+logs[0].AuditID+"/verify", manager, nil, &verify)
	if !verify.Verified {
		t.Fatalf("audit signature did not verify")
	}

	// Party tokens must not reach the admin surface.
	req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/admin/audit", nil)
	if err != nil {
		t.Fatalf("audit request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+customer)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("audit as customer: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("audit as customer status = %d, want 403", resp.StatusCode)
	}
}

type bookingResponse struct {
	BookingID   string   `json:"bookingId"`
	Status      string   `json:"status"`
	TransportID *string  `json:"transportId"`
	AgreedPrice *float64 `json:"agreedPrice"`
}

type quotationResponse struct {
	QuotationID    string  `json:"quotationId"`
	Status         string  `json:"status"`
	Price          float64 `json:"price"`
	ReferencePrice float64 `json:"referencePrice"`
}

type counterOfferResponse struct {
	CounterOfferID       string   `json:"counterOfferId"`
	Status               string   `json:"status"`
	OfferedPrice         float64  `json:"offeredPrice"`
	PercentageChange     float64  `json:"percentageChange"`
	HoursUntilExpiration *float64 `json:"hoursUntilExpiration"`
}

type auditLogResponse struct {
	AuditID   string `json:"auditId"`
	Action    string `json:"action"`
	Actor     string `json:"actor"`
	RiskLevel string `json:"riskLevel"`
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body interface{}, out interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s status %d: %s", method, url, resp.StatusCode, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func bearerToken(t *testing.T, userID string, role actor.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, testDSN)
	if err != nil {
		t.Fatalf("db pool: %v", err)
	}

	root := repoRoot(t)
	if err := postgres.RunMigrations(ctx, pool, filepath.Join(root, "internal", "migrations")); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	if err := resetDatabase(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("reset db: %v", err)
	}

	logger := zerolog.Nop()
	bookingRepo := postgres.NewBookingRepository(pool)
	quotationRepo := postgres.NewQuotationRepository(pool)
	counterOfferRepo := postgres.NewCounterOfferRepository(pool)
	disputeRepo := postgres.NewDisputeRepository(pool)
	exceptionRepo := postgres.NewExceptionRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	sseHub := sse.NewHub()
	locks := lock.NewKeyedMutex()
	clk := clock.System{}

	auditSvc := audit.NewService(auditRepo, clk, logger, mustDecodeHex(t, auditKeyHex))
	notificationSvc := notification.NewService(notificationRepo, sseHub, clk, logger, 72*time.Hour)
	applier := effects.NewApplier(auditSvc, notificationSvc)

	bookingSvc := booking.NewService(bookingRepo, locks, clk, logger)
	negotiationSvc := negotiation.NewService(bookingSvc, quotationRepo, counterOfferRepo, locks, clk, logger, 24*time.Hour)
	disputeSvc := dispute.NewService(disputeRepo, bookingSvc, dispute.RoleAuthorizer{}, locks, clk, logger)

	escalationRule, err := exception.NewEscalationRule("ageHours > 4 && priority == 'URGENT'")
	if err != nil {
		pool.Close()
		t.Fatalf("escalation rule: %v", err)
	}
	exceptionSvc := exception.NewService(exceptionRepo, escalationRule, locks, clk, logger)

	apiServer := httpapi.NewServer(bookingSvc, negotiationSvc, disputeSvc, exceptionSvc, notificationSvc, auditSvc, applier, sseHub, clk, []byte(testJWTSecret))
	server := httptest.NewServer(apiServer.Router())

	cleanup := func() {
		server.Close()
		sseHub.Stop()
		pool.Close()
	}

	return server, cleanup
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func resetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE TABLE
			audit_logs,
			notifications,
			exceptions,
			dispute_evidence,
			dispute_messages,
			disputes,
			counter_offers,
			quotations,
			booking_items,
			bookings
		RESTART IDENTITY CASCADE
	`)
	return err
}

func mustDecodeHex(t *testing.T, value string) []byte {
	t.Helper()
	b, err := hex.DecodeString(value)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	return b
}
