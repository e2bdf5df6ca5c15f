package builder

import "github.com/erazemk/invadmin/internal/model"

// Draft is an order under construction. Lines are keyed by item id, so an
// item appears at most once; order keeps the insertion sequence for display
// and submission.
type Draft struct {
	editingID int64
	status    model.OrderStatus
	order     []int64
	qty       map[int64]int
	address   string
}

// EditingOrderID returns the id of the order being edited, if any.
func (d *Draft) EditingOrderID() (int64, bool) {
	return d.editingID, d.editingID != 0
}

// Status is the backend status of the order being edited, or "" for a new order.
func (d *Draft) Status() model.OrderStatus {
	return d.status
}

// Address returns the delivery address exactly as entered.
func (d *Draft) Address() string {
	return d.address
}

// SetAddress replaces the delivery address verbatim.
func (d *Draft) SetAddress(text string) {
	d.address = text
}

// Len returns the number of distinct lines.
func (d *Draft) Len() int {
	return len(d.order)
}

// Quantity returns the quantity of an item, or 0 if it is not in the draft.
func (d *Draft) Quantity(itemID int64) int {
	return d.qty[itemID]
}

// Add increments the quantity of itemID, appending a new line of 1 if absent.
func (d *Draft) Add(itemID int64) {
	if d.qty == nil {
		d.qty = make(map[int64]int)
	}
	if _, ok := d.qty[itemID]; !ok {
		d.order = append(d.order, itemID)
	}
	d.qty[itemID]++
}

// Remove drops the line for itemID. It is a no-op if the item is absent.
func (d *Draft) Remove(itemID int64) {
	if _, ok := d.qty[itemID]; !ok {
		return
	}
	delete(d.qty, itemID)
	for i, id := range d.order {
		if id == itemID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// SetQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. Items not in the draft are ignored.
func (d *Draft) SetQuantity(itemID int64, q int) {
	if q <= 0 {
		d.Remove(itemID)
		return
	}
	if _, ok := d.qty[itemID]; ok {
		d.qty[itemID] = q
	}
}

// Items materializes the lines in insertion order.
func (d *Draft) Items() []model.OrderItem {
	items := make([]model.OrderItem, 0, len(d.order))
	for _, id := range d.order {
		items = append(items, model.OrderItem{ItemID: id, Quantity: d.qty[id]})
	}
	return items
}

// Load replaces the draft with a copy of order, binding it to the order's id.
// Duplicate lines from the backend are merged.
func (d *Draft) Load(order model.Order) {
	d.Clear()
	d.editingID = order.OrderID()
	d.status = order.Status
	d.address = order.DeliveryAddress
	for _, line := range order.Items {
		if line.Quantity <= 0 {
			continue
		}
		if _, ok := d.qty[line.ItemID]; !ok {
			d.order = append(d.order, line.ItemID)
		}
		d.qty[line.ItemID] += line.Quantity
	}
}

// Clear empties the draft and unbinds it from any order.
func (d *Draft) Clear() {
	d.editingID = 0
	d.status = ""
	d.order = nil
	d.qty = make(map[int64]int)
	d.address = ""
}
