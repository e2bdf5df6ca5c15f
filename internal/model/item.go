package model

// Item is an inventory item. ID is nil until the backend has persisted it.
type Item struct {
	ID       *int64 `json:"id,omitempty"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ItemID returns the item's id, or 0 when it has not been persisted yet.
func (i Item) ItemID() int64 {
	if i.ID == nil {
		return 0
	}
	return *i.ID
}

// ItemNames maps persisted item ids to their names.
func ItemNames(items []Item) map[int64]string {
	names := make(map[int64]string, len(items))
	for _, item := range items {
		if item.ID != nil {
			names[*item.ID] = item.Name
		}
	}
	return names
}

// ID returns a pointer to id, for building contracts in place.
func ID(id int64) *int64 {
	return &id
}
