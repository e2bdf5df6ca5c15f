// Package builder holds the per-session state of the orders page: the draft
// order, the cached item and order lists, the selected order, and the last
// error and success notice.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/erazemk/invadmin/internal/client"
	"github.com/erazemk/invadmin/internal/model"
)

// State is the submission state of a Builder.
type State int

// Builder states.
const (
	Idle State = iota
	Drafting
	Editing
	Submitting
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drafting:
		return "drafting"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// User-visible messages.
const (
	MsgLoadItems    = "Failed to load items. Make sure the backend API is running."
	MsgLoadOrders   = "Failed to load orders. Make sure the backend API is running."
	MsgLoadDetails  = "Failed to load order details."
	MsgSaveFailed   = "Failed to save order."
	MsgPurchaseFail = "Failed to purchase order."
	MsgNotEditable  = "This order can no longer be edited."
)

var (
	// ErrBusy is returned when an action arrives while a submission is in flight.
	ErrBusy = errors.New("a submission is in progress")
	// ErrNotEditable is returned for edits or purchases of orders that are not SAVED.
	ErrNotEditable = errors.New("order is not in SAVED status")
)

// Backend is the subset of the inventory API the builder needs.
// *client.Client implements it.
type Backend interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error)
	UpdateOrder(ctx context.Context, id int64, req model.OrderRequest) (*model.Order, error)
	PurchaseOrder(ctx context.Context, id int64, opts *client.PurchaseOptions) (*model.Order, error)
}

// Builder is the order builder for a single browser session. Network calls
// are made without holding the lock, so the Submitting state is observable
// by concurrent requests of the same session.
type Builder struct {
	backend Backend
	notice  *Notice

	mu            sync.Mutex
	state         State
	draft         Draft
	purchasing    bool
	items         []model.Item
	names         map[int64]string
	orders        []model.Order
	ordersLoading bool
	selectedID    int64
	selected      *model.Order
	detailLoading bool
	errMsg        string
}

// New returns an idle builder.
func New(backend Backend, notice *Notice) *Builder {
	if notice == nil {
		notice = NewNotice(nil, NoticeDuration)
	}
	b := &Builder{
		backend: backend,
		notice:  notice,
		names:   map[int64]string{},
	}
	b.draft.Clear()
	return b
}

// Close stops the builder's pending notice timer.
func (b *Builder) Close() {
	b.notice.Close()
}

// State returns the current state.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// EditingOrderID returns the id of the order loaded into the draft, if any.
func (b *Builder) EditingOrderID() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft.EditingOrderID()
}

// settle returns to Drafting or Editing depending on the draft binding.
// Must be called with b.mu held.
func (b *Builder) settle() {
	if _, editing := b.draft.EditingOrderID(); editing {
		b.state = Editing
	} else {
		b.state = Drafting
	}
}

// mutate applies fn to the draft unless a submission is in flight. Leaving
// the Error state clears the error message.
func (b *Builder) mutate(fn func(d *Draft)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Submitting {
		return ErrBusy
	}
	fn(&b.draft)
	if b.state == Error {
		b.errMsg = ""
	}
	b.settle()
	return nil
}

// AddItem adds one unit of itemID to the draft.
func (b *Builder) AddItem(itemID int64) error {
	return b.mutate(func(d *Draft) { d.Add(itemID) })
}

// RemoveItem removes itemID from the draft.
func (b *Builder) RemoveItem(itemID int64) error {
	return b.mutate(func(d *Draft) { d.Remove(itemID) })
}

// SetQuantity sets the quantity of itemID; q <= 0 removes the line.
func (b *Builder) SetQuantity(itemID int64, q int) error {
	return b.mutate(func(d *Draft) { d.SetQuantity(itemID, q) })
}

// SetDeliveryAddress replaces the delivery address verbatim.
func (b *Builder) SetDeliveryAddress(text string) error {
	return b.mutate(func(d *Draft) { d.SetAddress(text) })
}

// Reset clears the draft and returns to Drafting.
func (b *Builder) Reset() error {
	return b.mutate(func(d *Draft) { d.Clear() })
}

// BeginEdit loads a copy of order into the draft. Only SAVED orders with an
// id can be edited; anything else leaves the draft untouched.
func (b *Builder) BeginEdit(order model.Order) error {
	if order.ID == nil || !order.Status.Editable() {
		return ErrNotEditable
	}
	return b.mutate(func(d *Draft) { d.Load(order.Clone()) })
}

// BeginEditSelected loads the selected order into the draft.
func (b *Builder) BeginEditSelected() error {
	b.mu.Lock()
	selected := b.selected
	b.mu.Unlock()
	if selected == nil {
		return ErrNotEditable
	}
	return b.BeginEdit(*selected)
}

// Submit validates the draft and creates or updates the order. Validation
// failures never reach the backend; any failure keeps the draft for retry.
func (b *Builder) Submit(ctx context.Context) error {
	b.mu.Lock()
	if b.state == Submitting || b.purchasing {
		b.mu.Unlock()
		return ErrBusy
	}

	req := model.OrderRequest{Items: b.draft.Items(), DeliveryAddress: b.draft.Address()}
	if err := req.Validate(); err != nil {
		b.state = Error
		b.errMsg = err.Error()
		b.mu.Unlock()
		return err
	}
	editingID, editing := b.draft.EditingOrderID()
	if editing && !b.draft.Status().Editable() {
		b.state = Error
		b.errMsg = MsgNotEditable
		b.mu.Unlock()
		return ErrNotEditable
	}
	req.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	b.state = Submitting
	b.errMsg = ""
	b.mu.Unlock()

	var (
		order *model.Order
		err   error
	)
	if editing {
		order, err = b.backend.UpdateOrder(ctx, editingID, req)
	} else {
		order, err = b.backend.CreateOrder(ctx, req)
	}
	if err != nil {
		slog.Error("failed to save order", "error", err, "order", editingID)
		b.mu.Lock()
		b.state = Error
		b.errMsg = MsgSaveFailed
		b.mu.Unlock()
		return fmt.Errorf("saving order: %w", err)
	}

	if editing {
		b.notice.Show(fmt.Sprintf("Order #%d updated successfully!", editingID))
	} else {
		b.notice.Show(fmt.Sprintf("Order #%d created successfully!", order.OrderID()))
	}

	b.LoadOrders(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if order.ID != nil {
		saved := order.Clone()
		b.selectedID = *order.ID
		b.selected = &saved
	}
	if editing {
		b.draft.Load(order.Clone())
	} else {
		b.draft.Clear()
	}
	b.settle()
	return nil
}

// Purchase purchases an order and resynchronizes the order list, the
// selected order, and the draft if it holds the same order.
func (b *Builder) Purchase(ctx context.Context, orderID int64) error {
	b.mu.Lock()
	if b.state == Submitting || b.purchasing {
		b.mu.Unlock()
		return ErrBusy
	}
	if known := b.findOrder(orderID); known != nil && !known.Status.Editable() {
		b.mu.Unlock()
		return ErrNotEditable
	}
	b.purchasing = true
	b.errMsg = ""
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.purchasing = false
		b.mu.Unlock()
	}()

	if _, err := b.backend.PurchaseOrder(ctx, orderID, nil); err != nil {
		return b.purchaseFailed(orderID, err)
	}
	b.notice.Show(fmt.Sprintf("Order #%d purchased successfully!", orderID))

	// Sequential on purpose: the detail fetch must observe the post-purchase state.
	b.LoadOrders(ctx)
	refreshed, err := b.backend.GetOrder(ctx, orderID)
	if err != nil {
		// The purchase itself went through.
		slog.Error("failed to load order details", "error", err, "order", orderID)
		b.mu.Lock()
		b.errMsg = MsgLoadDetails
		b.mu.Unlock()
		return fmt.Errorf("loading order %d: %w", orderID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	order := refreshed.Clone()
	b.selectedID = orderID
	b.selected = &order
	if id, editing := b.draft.EditingOrderID(); editing && id == orderID && b.state != Submitting {
		b.draft.Load(refreshed.Clone())
	}
	return nil
}

func (b *Builder) purchaseFailed(orderID int64, err error) error {
	slog.Error("failed to purchase order", "error", err, "order", orderID)
	b.mu.Lock()
	b.errMsg = MsgPurchaseFail
	b.mu.Unlock()
	return fmt.Errorf("purchasing order %d: %w", orderID, err)
}

// findOrder looks up a cached order. Must be called with b.mu held.
func (b *Builder) findOrder(id int64) *model.Order {
	if b.selected != nil && b.selected.OrderID() == id {
		return b.selected
	}
	for i := range b.orders {
		if b.orders[i].OrderID() == id {
			return &b.orders[i]
		}
	}
	return nil
}

// LoadItems refreshes the cached item list.
func (b *Builder) LoadItems(ctx context.Context) error {
	items, err := b.backend.ListItems(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		slog.Error("failed to load items", "error", err)
		b.errMsg = MsgLoadItems
		return fmt.Errorf("loading items: %w", err)
	}
	b.items = items
	b.names = model.ItemNames(items)
	if b.errMsg == MsgLoadItems {
		b.errMsg = ""
	}
	return nil
}

// LoadOrders refreshes the cached order list. The selection survives when the
// selected order is still listed and is cleared otherwise.
func (b *Builder) LoadOrders(ctx context.Context) error {
	b.mu.Lock()
	b.ordersLoading = true
	b.mu.Unlock()

	orders, err := b.backend.ListOrders(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ordersLoading = false
	if err != nil {
		slog.Error("failed to load orders", "error", err)
		b.errMsg = MsgLoadOrders
		return fmt.Errorf("loading orders: %w", err)
	}
	b.orders = orders
	if b.errMsg == MsgLoadOrders {
		b.errMsg = ""
	}
	if b.selectedID != 0 {
		b.selected = nil
		for _, o := range orders {
			if o.OrderID() == b.selectedID {
				found := o.Clone()
				b.selected = &found
				break
			}
		}
		if b.selected == nil {
			b.selectedID = 0
		}
	}
	return nil
}

// SelectOrder fetches an order and makes it the selected one.
func (b *Builder) SelectOrder(ctx context.Context, id int64) error {
	b.mu.Lock()
	b.selectedID = id
	b.detailLoading = true
	b.errMsg = ""
	b.mu.Unlock()

	order, err := b.backend.GetOrder(ctx, id)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.detailLoading = false
	if err != nil {
		slog.Error("failed to load order details", "error", err, "order", id)
		b.errMsg = MsgLoadDetails
		return fmt.Errorf("loading order %d: %w", id, err)
	}
	// A newer selection wins.
	if b.selectedID == id {
		selected := order.Clone()
		b.selected = &selected
	}
	return nil
}

// Snapshot returns a copy of the builder's state for rendering.
func (b *Builder) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	editingID, editing := b.draft.EditingOrderID()
	s := Snapshot{
		State:           b.state,
		Busy:            b.state == Submitting || b.purchasing,
		EditingOrderID:  editingID,
		Editing:         editing,
		Lines:           b.draft.Items(),
		DeliveryAddress: b.draft.Address(),
		Items:           append([]model.Item(nil), b.items...),
		OrdersLoading:   b.ordersLoading,
		SelectedID:      b.selectedID,
		DetailLoading:   b.detailLoading,
		Error:           b.errMsg,
		Notice:          b.notice.Text(),
		names:           b.names,
	}
	s.Orders = make([]model.Order, len(b.orders))
	for i, o := range b.orders {
		s.Orders[i] = o.Clone()
	}
	if b.selected != nil {
		selected := b.selected.Clone()
		s.Selected = &selected
	}
	return s
}

// Snapshot is an immutable view of a Builder.
type Snapshot struct {
	State           State
	Busy            bool
	EditingOrderID  int64
	Editing         bool
	Lines           []model.OrderItem
	DeliveryAddress string
	Items           []model.Item
	Orders          []model.Order
	OrdersLoading   bool
	SelectedID      int64
	Selected        *model.Order
	DetailLoading   bool
	Error           string
	Notice          string

	names map[int64]string
}

// TotalQuantity sums the draft quantities.
func (s Snapshot) TotalQuantity() int {
	return model.TotalQuantity(s.Lines)
}

// ItemName resolves an item id to its name, falling back to "Item #id".
func (s Snapshot) ItemName(id int64) string {
	if name, ok := s.names[id]; ok {
		return name
	}
	return fmt.Sprintf("Item #%d", id)
}
