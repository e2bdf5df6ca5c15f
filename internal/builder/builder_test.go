package builder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/erazemk/invadmin/internal/client"
	"github.com/erazemk/invadmin/internal/model"
)

// fakeBackend is an in-memory Backend that records every call.
type fakeBackend struct {
	mu     sync.Mutex
	calls  []string
	items  []model.Item
	orders map[int64]*model.Order
	nextID int64
	fail   map[string]error
	// block, when set, is waited on inside CreateOrder and UpdateOrder.
	block chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		items: []model.Item{
			{ID: model.ID(1), Name: "Widget", Quantity: 10},
			{ID: model.ID(2), Name: "Gadget", Quantity: 5},
		},
		orders: map[int64]*model.Order{},
		nextID: 1,
		fail:   map[string]error{},
	}
}

func (f *fakeBackend) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) ListItems(ctx context.Context) ([]model.Item, error) {
	if err := f.record("ListItems"); err != nil {
		return nil, err
	}
	return f.items, nil
}

func (f *fakeBackend) ListOrders(ctx context.Context) ([]model.Order, error) {
	if err := f.record("ListOrders"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var orders []model.Order
	for id := int64(1); id < f.nextID; id++ {
		if o, ok := f.orders[id]; ok {
			orders = append(orders, o.Clone())
		}
	}
	return orders, nil
}

func (f *fakeBackend) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if err := f.record("GetOrder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, &client.StatusError{Code: 404}
	}
	c := o.Clone()
	return &c, nil
}

func (f *fakeBackend) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if f.block != nil {
		<-f.block
	}
	if err := f.record("CreateOrder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	o := &model.Order{ID: model.ID(id), Items: req.Items, DeliveryAddress: req.DeliveryAddress, Status: model.OrderStatusSaved}
	f.orders[id] = o
	c := o.Clone()
	return &c, nil
}

func (f *fakeBackend) UpdateOrder(ctx context.Context, id int64, req model.OrderRequest) (*model.Order, error) {
	if f.block != nil {
		<-f.block
	}
	if err := f.record("UpdateOrder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, &client.StatusError{Code: 404}
	}
	// The backend normalizes the address, so the response differs from the request.
	o.Items = req.Items
	o.DeliveryAddress = req.DeliveryAddress + " (verified)"
	c := o.Clone()
	return &c, nil
}

func (f *fakeBackend) PurchaseOrder(ctx context.Context, id int64, opts *client.PurchaseOptions) (*model.Order, error) {
	if err := f.record("PurchaseOrder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, &client.StatusError{Code: 404}
	}
	o.Status = model.OrderStatusPurchased
	c := o.Clone()
	return &c, nil
}

func (f *fakeBackend) seedOrder(status model.OrderStatus, address string, items ...model.OrderItem) model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	o := &model.Order{ID: model.ID(id), Items: items, DeliveryAddress: address, Status: status}
	f.orders[id] = o
	return o.Clone()
}

func newTestBuilder(t *testing.T) (*Builder, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	b := New(backend, NewNotice(testclock.NewClock(time.Now()), NoticeDuration))
	t.Cleanup(b.Close)
	return b, backend
}

func TestAddSameItemTwiceMerges(t *testing.T) {
	b, _ := newTestBuilder(t)

	b.AddItem(1)
	b.AddItem(1)

	lines := b.Snapshot().Lines
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0] != (model.OrderItem{ItemID: 1, Quantity: 2}) {
		t.Errorf("expected {1 2}, got %+v", lines[0])
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	b, _ := newTestBuilder(t)
	b.AddItem(2)
	before := b.Snapshot().Lines

	b.AddItem(1)
	b.SetQuantity(1, 0)

	after := b.Snapshot().Lines
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("expected %+v, got %+v", before, after)
	}

	b.SetQuantity(2, -3)
	if n := len(b.Snapshot().Lines); n != 0 {
		t.Errorf("expected negative quantity to remove the line, %d left", n)
	}
}

func TestSetQuantityAndRemove(t *testing.T) {
	b, _ := newTestBuilder(t)
	b.AddItem(1)
	b.AddItem(2)
	b.SetQuantity(2, 7)
	b.SetQuantity(3, 4) // not in draft
	b.RemoveItem(9)     // no-op

	want := []model.OrderItem{{ItemID: 1, Quantity: 1}, {ItemID: 2, Quantity: 7}}
	got := b.Snapshot().Lines
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	b.RemoveItem(1)
	if got := b.Snapshot().Lines; len(got) != 1 || got[0].ItemID != 2 {
		t.Errorf("expected only item 2 left, got %+v", got)
	}
}

func TestStateTransitions(t *testing.T) {
	b, backend := newTestBuilder(t)
	if b.State() != Idle {
		t.Fatalf("expected idle, got %s", b.State())
	}

	b.SetDeliveryAddress("  Main St 1  ")
	if b.State() != Drafting {
		t.Errorf("expected drafting, got %s", b.State())
	}
	if got := b.Snapshot().DeliveryAddress; got != "  Main St 1  " {
		t.Errorf("address must be kept verbatim, got %q", got)
	}

	order := backend.seedOrder(model.OrderStatusSaved, "Old Rd", model.OrderItem{ItemID: 1, Quantity: 1})
	if err := b.BeginEdit(order); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if id, ok := b.EditingOrderID(); !ok || id != order.OrderID() || b.State() != Editing {
		t.Errorf("expected editing(%d), got %s %d", order.OrderID(), b.State(), id)
	}

	b.Reset()
	if _, ok := b.EditingOrderID(); ok || b.State() != Drafting {
		t.Errorf("expected drafting after reset, got %s", b.State())
	}
	s := b.Snapshot()
	if len(s.Lines) != 0 || s.DeliveryAddress != "" {
		t.Errorf("expected empty draft after reset, got %+v", s)
	}
}

func TestSubmitEmptyItemsMakesNoCall(t *testing.T) {
	b, backend := newTestBuilder(t)
	b.SetDeliveryAddress("221B Baker Street")

	err := b.Submit(context.Background())
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if backend.callCount() != 0 {
		t.Errorf("expected no backend calls, got %v", backend.calls)
	}
	s := b.Snapshot()
	if s.State != Error || s.Error != model.MsgNoItems {
		t.Errorf("expected error state with %q, got %s %q", model.MsgNoItems, s.State, s.Error)
	}
	if s.DeliveryAddress != "221B Baker Street" || len(s.Lines) != 0 {
		t.Errorf("draft changed: %+v", s)
	}
}

func TestSubmitBlankAddressRejected(t *testing.T) {
	for _, address := range []string{"", "   ", "\t\n"} {
		b, backend := newTestBuilder(t)
		b.AddItem(1)
		b.SetDeliveryAddress(address)

		err := b.Submit(context.Background())
		if err == nil || err.Error() != model.MsgNoAddress {
			t.Errorf("address %q: expected %q, got %v", address, model.MsgNoAddress, err)
		}
		if backend.callCount() != 0 {
			t.Errorf("address %q: expected no backend calls", address)
		}
		if b.Snapshot().Lines[0].Quantity != 1 {
			t.Errorf("address %q: draft changed", address)
		}
	}
}

func TestSubmitCreateResetsDraft(t *testing.T) {
	b, backend := newTestBuilder(t)
	b.AddItem(1)
	b.SetQuantity(1, 2)
	b.SetDeliveryAddress("  221B Baker Street ")

	if err := b.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s := b.Snapshot()
	if s.State != Drafting || s.Editing || len(s.Lines) != 0 || s.DeliveryAddress != "" {
		t.Errorf("expected reset draft, got %+v", s)
	}
	if s.Selected == nil || s.SelectedID != 1 {
		t.Fatalf("expected created order to be selected, got %+v", s.Selected)
	}
	if s.Selected.Status != model.OrderStatusSaved {
		t.Errorf("expected SAVED, got %q", s.Selected.Status)
	}
	if s.Selected.DeliveryAddress != "221B Baker Street" {
		t.Errorf("expected trimmed address, got %q", s.Selected.DeliveryAddress)
	}
	if s.Notice != "Order #1 created successfully!" {
		t.Errorf("unexpected notice %q", s.Notice)
	}
	if len(s.Orders) != 1 {
		t.Errorf("expected order list reload, got %d orders", len(s.Orders))
	}
	if backend.calls[len(backend.calls)-1] != "ListOrders" {
		t.Errorf("expected a list reload after create, calls %v", backend.calls)
	}
}

func TestSubmitUpdateMirrorsBackend(t *testing.T) {
	b, backend := newTestBuilder(t)
	for i := 0; i < 41; i++ {
		backend.seedOrder(model.OrderStatusHeld, "filler")
	}
	order := backend.seedOrder(model.OrderStatusSaved, "Old Rd", model.OrderItem{ItemID: 1, Quantity: 1})
	if order.OrderID() != 42 {
		t.Fatalf("expected order 42, got %d", order.OrderID())
	}

	b.BeginEdit(order)
	b.AddItem(2)
	b.SetDeliveryAddress("New Rd")
	if err := b.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s := b.Snapshot()
	if s.State != Editing || s.EditingOrderID != 42 {
		t.Fatalf("expected editing(42), got %s(%d)", s.State, s.EditingOrderID)
	}
	if s.DeliveryAddress != "New Rd (verified)" {
		t.Errorf("draft must mirror the backend response, got %q", s.DeliveryAddress)
	}
	if len(s.Lines) != 2 {
		t.Errorf("expected 2 lines, got %+v", s.Lines)
	}
	if s.SelectedID != 42 || s.Notice != "Order #42 updated successfully!" {
		t.Errorf("unexpected selection %d / notice %q", s.SelectedID, s.Notice)
	}
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	b, backend := newTestBuilder(t)
	backend.fail["CreateOrder"] = errors.New("backend down")
	b.AddItem(1)
	b.SetDeliveryAddress("Main St 1")

	if err := b.Submit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	s := b.Snapshot()
	if s.State != Error || s.Error != MsgSaveFailed {
		t.Errorf("expected error state, got %s %q", s.State, s.Error)
	}
	if len(s.Lines) != 1 || s.DeliveryAddress != "Main St 1" {
		t.Errorf("draft must be preserved, got %+v", s)
	}

	// Retrying after the backend recovers succeeds.
	delete(backend.fail, "CreateOrder")
	if err := b.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if b.State() != Drafting {
		t.Errorf("expected drafting after retry, got %s", b.State())
	}
}

func TestMutationsRejectedWhileSubmitting(t *testing.T) {
	b, backend := newTestBuilder(t)
	backend.block = make(chan struct{})
	b.AddItem(1)
	b.SetDeliveryAddress("Main St 1")

	done := make(chan error, 1)
	go func() { done <- b.Submit(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for b.State() != Submitting {
		if time.Now().After(deadline) {
			t.Fatal("builder never entered submitting")
		}
		time.Sleep(time.Millisecond)
	}

	if err := b.AddItem(2); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if err := b.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for concurrent submit, got %v", err)
	}
	if !b.Snapshot().Busy {
		t.Error("expected snapshot to report busy")
	}

	close(backend.block)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for _, line := range b.Snapshot().Lines {
		t.Errorf("unexpected line after reset: %+v", line)
	}
}

func TestBeginEditRequiresSaved(t *testing.T) {
	b, backend := newTestBuilder(t)
	b.AddItem(2)

	for _, status := range []model.OrderStatus{model.OrderStatusPurchased, model.OrderStatusHeld} {
		order := backend.seedOrder(status, "Somewhere", model.OrderItem{ItemID: 1, Quantity: 3})
		if err := b.BeginEdit(order); !errors.Is(err, ErrNotEditable) {
			t.Errorf("%s: expected ErrNotEditable, got %v", status, err)
		}
		s := b.Snapshot()
		if s.Editing || len(s.Lines) != 1 || s.Lines[0].ItemID != 2 {
			t.Errorf("%s: draft must not be populated, got %+v", status, s.Lines)
		}
	}

	if err := b.BeginEdit(model.Order{Status: model.OrderStatusSaved}); !errors.Is(err, ErrNotEditable) {
		t.Errorf("order without id: expected ErrNotEditable, got %v", err)
	}
}

func TestBeginEditCopiesOrder(t *testing.T) {
	b, _ := newTestBuilder(t)
	order := model.Order{ID: model.ID(5), Items: []model.OrderItem{{ItemID: 1, Quantity: 2}}, DeliveryAddress: "A", Status: model.OrderStatusSaved}

	b.BeginEdit(order)
	b.SetQuantity(1, 9)

	if order.Items[0].Quantity != 2 {
		t.Error("editing the draft must not mutate the source order")
	}
}

func TestPurchaseResyncs(t *testing.T) {
	b, backend := newTestBuilder(t)
	ctx := context.Background()
	order := backend.seedOrder(model.OrderStatusSaved, "Main St 1", model.OrderItem{ItemID: 1, Quantity: 2})
	id := order.OrderID()
	b.BeginEdit(order)

	if err := b.Purchase(ctx, id); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	want := []string{"PurchaseOrder", "ListOrders", "GetOrder"}
	if len(backend.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, backend.calls)
	}
	for i := range want {
		if backend.calls[i] != want[i] {
			t.Errorf("call %d: got %s, want %s", i, backend.calls[i], want[i])
		}
	}

	s := b.Snapshot()
	if s.Selected == nil || s.Selected.Status == model.OrderStatusSaved {
		t.Fatalf("expected selected order to leave SAVED, got %+v", s.Selected)
	}
	if s.Notice != "Order #1 purchased successfully!" {
		t.Errorf("unexpected notice %q", s.Notice)
	}

	// The draft now mirrors a purchased order, so it can no longer be submitted.
	if err := b.Submit(ctx); !errors.Is(err, ErrNotEditable) {
		t.Errorf("expected ErrNotEditable, got %v", err)
	}
	if err := b.Purchase(ctx, id); !errors.Is(err, ErrNotEditable) {
		t.Errorf("expected second purchase to be refused, got %v", err)
	}
}

func TestPurchaseFailureKeepsState(t *testing.T) {
	b, backend := newTestBuilder(t)
	order := backend.seedOrder(model.OrderStatusSaved, "Main St 1", model.OrderItem{ItemID: 1, Quantity: 2})
	backend.fail["PurchaseOrder"] = errors.New("boom")
	b.SelectOrder(context.Background(), order.OrderID())

	if err := b.Purchase(context.Background(), order.OrderID()); err == nil {
		t.Fatal("expected error")
	}
	s := b.Snapshot()
	if s.Error != MsgPurchaseFail {
		t.Errorf("expected %q, got %q", MsgPurchaseFail, s.Error)
	}
	if s.Selected == nil || s.Selected.Status != model.OrderStatusSaved {
		t.Errorf("selected order must be unchanged, got %+v", s.Selected)
	}
	if s.Busy {
		t.Error("builder must not stay busy after a failed purchase")
	}
}

func TestPurchaseDetailFetchFailure(t *testing.T) {
	b, backend := newTestBuilder(t)
	order := backend.seedOrder(model.OrderStatusSaved, "Main St 1", model.OrderItem{ItemID: 1, Quantity: 2})
	b.SelectOrder(context.Background(), order.OrderID())
	backend.fail["GetOrder"] = errors.New("boom")

	if err := b.Purchase(context.Background(), order.OrderID()); err == nil {
		t.Fatal("expected error")
	}
	s := b.Snapshot()
	if s.Error != MsgLoadDetails {
		t.Errorf("expected %q, got %q", MsgLoadDetails, s.Error)
	}
	if s.Notice != "Order #1 purchased successfully!" {
		t.Errorf("expected purchase notice, got %q", s.Notice)
	}
	if s.Selected == nil || s.Selected.Status != model.OrderStatusPurchased {
		t.Errorf("selection must reflect the reloaded list, got %+v", s.Selected)
	}
	if s.Busy {
		t.Error("builder must not stay busy")
	}
}

func TestLoadOrdersDropsVanishedSelection(t *testing.T) {
	b, backend := newTestBuilder(t)
	ctx := context.Background()
	order := backend.seedOrder(model.OrderStatusSaved, "A")
	b.SelectOrder(ctx, order.OrderID())

	backend.mu.Lock()
	delete(backend.orders, order.OrderID())
	backend.mu.Unlock()

	if err := b.LoadOrders(ctx); err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	if s := b.Snapshot(); s.Selected != nil || s.SelectedID != 0 {
		t.Errorf("expected selection cleared, got %+v", s.Selected)
	}
}

func TestLoadErrors(t *testing.T) {
	b, backend := newTestBuilder(t)
	backend.fail["ListItems"] = errors.New("down")
	backend.fail["GetOrder"] = errors.New("down")

	b.LoadItems(context.Background())
	if got := b.Snapshot().Error; got != MsgLoadItems {
		t.Errorf("expected %q, got %q", MsgLoadItems, got)
	}
	b.SelectOrder(context.Background(), 3)
	if got := b.Snapshot().Error; got != MsgLoadDetails {
		t.Errorf("expected %q, got %q", MsgLoadDetails, got)
	}
}

func TestLoadRecoveryClearsError(t *testing.T) {
	b, backend := newTestBuilder(t)
	backend.fail["ListOrders"] = errors.New("down")

	b.LoadOrders(context.Background())
	if got := b.Snapshot().Error; got != MsgLoadOrders {
		t.Fatalf("expected %q, got %q", MsgLoadOrders, got)
	}

	delete(backend.fail, "ListOrders")
	if err := b.LoadOrders(context.Background()); err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	if got := b.Snapshot().Error; got != "" {
		t.Errorf("expected error cleared after reload, got %q", got)
	}
}

func TestItemNameFallback(t *testing.T) {
	b, _ := newTestBuilder(t)
	if err := b.LoadItems(context.Background()); err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	s := b.Snapshot()
	if got := s.ItemName(1); got != "Widget" {
		t.Errorf("expected Widget, got %q", got)
	}
	if got := s.ItemName(99); got != "Item #99" {
		t.Errorf("expected fallback name, got %q", got)
	}
}
