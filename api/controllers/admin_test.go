package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/internal/orders"
	"github.com/threadloom/storefront-backend/internal/reconciliation"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

type stubOrders struct {
	target enums.OrderStatus
	update orders.UpdateInput
	filter orders.ListFilter
	err    error
}

func (s *stubOrders) Transition(_ context.Context, id uuid.UUID, target enums.OrderStatus) (*orders.OrderDTO, error) {
	s.target = target
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: id, Status: target}, nil
}

func (s *stubOrders) UpdateFulfillment(_ context.Context, id uuid.UUID, input orders.UpdateInput) (*orders.OrderDTO, error) {
	s.update = input
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: id, TrackingNumber: input.TrackingNumber}, nil
}

func (s *stubOrders) GetByNumber(_ context.Context, _ identity.Caller, number string) (*orders.OrderDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{OrderNumber: number}, nil
}

func (s *stubOrders) Get(_ context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: id}, s.err
}

func (s *stubOrders) List(_ context.Context, filter orders.ListFilter) (*orders.OrderList, error) {
	s.filter = filter
	return &orders.OrderList{}, s.err
}

func TestAdminOrderStatusRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	svc := &stubOrders{}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodPut, "/admin/orders/x/status", `{"status":"lost"}`, admin(), map[string]string{"id": uuid.NewString()})
	AdminOrderStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.target != "" {
		t.Fatalf("service should not be called")
	}
}

func TestAdminOrderStatusSurfacesInvalidTransition(t *testing.T) {
	t.Parallel()

	svc := &stubOrders{err: pkgerrors.InvalidTransition("pending", "shipped")}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodPut, "/admin/orders/x/status", `{"status":"Shipped"}`, admin(), map[string]string{"id": uuid.NewString()})
	AdminOrderStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if svc.target != enums.OrderStatusShipped {
		t.Fatalf("expected status parsed case-insensitively, got %q", svc.target)
	}
	body := decodeError(t, rec)
	if body.Error.Details["current"] != "pending" || body.Error.Details["attempted"] != "shipped" {
		t.Fatalf("unexpected details %v", body.Error.Details)
	}
}

func TestAdminOrderUpdateTrimsTracking(t *testing.T) {
	t.Parallel()

	svc := &stubOrders{}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodPut, "/admin/orders/x", `{"status":"shipped","trackingNumber":"  AWB123  "}`, admin(), map[string]string{"id": uuid.NewString()})
	AdminOrderUpdate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.update.TrackingNumber == nil || *svc.update.TrackingNumber != "AWB123" {
		t.Fatalf("unexpected tracking %v", svc.update.TrackingNumber)
	}
	if svc.update.Status == nil || *svc.update.Status != enums.OrderStatusShipped {
		t.Fatalf("unexpected status %v", svc.update.Status)
	}
	if svc.update.Notes != nil {
		t.Fatalf("notes should be left unchanged")
	}
}

func TestAdminOrderListParsesFilter(t *testing.T) {
	t.Parallel()

	svc := &stubOrders{}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/admin/v1/orders?status=processing&q=SF-2026&limit=10&offset=20", "", admin(), nil)
	AdminOrderList(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.filter.Status == nil || *svc.filter.Status != enums.OrderStatusProcessing {
		t.Fatalf("unexpected status filter %v", svc.filter.Status)
	}
	if svc.filter.Query != "SF-2026" || svc.filter.Limit != 10 || svc.filter.Offset != 20 {
		t.Fatalf("unexpected filter %+v", svc.filter)
	}
}

func TestOrderConfirmationHidesForeignOrders(t *testing.T) {
	t.Parallel()

	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/orders/SF-1", "", guest(), map[string]string{"orderNumber": "SF-1"})
	OrderConfirmation(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

type memoryToggle struct {
	on     bool
	setErr error
}

func (m *memoryToggle) Get(context.Context) bool { return m.on }

func (m *memoryToggle) Set(_ context.Context, on bool) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.on = on
	return nil
}

func TestAdminMaintenanceSetReadsBackImmediately(t *testing.T) {
	t.Parallel()

	toggle := &memoryToggle{}
	rec := httptest.NewRecorder()
	AdminMaintenanceSet(toggle, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/api/admin/v1/settings/maintenance", `{"enabled":true}`, admin(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var setting maintenanceSetting
	decodeData(t, rec, &setting)
	if !setting.Enabled {
		t.Fatalf("expected enabled in response")
	}

	rec = httptest.NewRecorder()
	AdminMaintenanceGet(toggle, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/admin/v1/settings/maintenance", "", admin(), nil))
	decodeData(t, rec, &setting)
	if !setting.Enabled {
		t.Fatalf("expected enabled on read")
	}
}

func TestAdminMaintenanceSetRequiresFlag(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	AdminMaintenanceSet(&memoryToggle{}, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/api/admin/v1/settings/maintenance", `{}`, admin(), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminMaintenanceSetStoreFailure(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	AdminMaintenanceSet(&memoryToggle{setErr: errors.New("redis down")}, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/api/admin/v1/settings/maintenance", `{"enabled":true}`, admin(), nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestMaintenancePageStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	MaintenancePage(&memoryToggle{on: true}, "help@threadloom.in", nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maintenance", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "help@threadloom.in") {
		t.Fatalf("expected support email in page")
	}

	rec = httptest.NewRecorder()
	MaintenancePage(&memoryToggle{}, "", nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maintenance", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when off, got %d", rec.Code)
	}
}

type stubReconciliation struct {
	resolvedBy uuid.UUID
	note       string
	filter     reconciliation.Filter
}

func (s *stubReconciliation) Open(context.Context, reconciliation.Request) (*models.PaymentReconciliation, error) {
	return nil, errors.New("not used")
}

func (s *stubReconciliation) List(_ context.Context, filter reconciliation.Filter) (*reconciliation.EntryList, error) {
	s.filter = filter
	return &reconciliation.EntryList{}, nil
}

func (s *stubReconciliation) Resolve(_ context.Context, id, resolvedBy uuid.UUID, note string) (*reconciliation.EntryDTO, error) {
	s.resolvedBy = resolvedBy
	s.note = note
	return &reconciliation.EntryDTO{}, nil
}

func TestAdminReconciliationResolveRecordsAdmin(t *testing.T) {
	t.Parallel()

	svc := &stubReconciliation{}
	caller := admin()
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/admin/v1/reconciliations/x/resolve", `{"note":"refunded manually"}`, caller, map[string]string{"id": uuid.NewString()})
	AdminReconciliationResolve(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if uid, _ := caller.Identity.UserID(); svc.resolvedBy != uid {
		t.Fatalf("expected resolver %s got %s", uid, svc.resolvedBy)
	}
	if svc.note != "refunded manually" {
		t.Fatalf("unexpected note %q", svc.note)
	}
}

func TestAdminReconciliationListRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	AdminReconciliationList(&stubReconciliation{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/admin/v1/reconciliations?status=pending", "", admin(), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
