package cache

import "strconv"

// Key scheme. A list key is only valid for the exact filter baked into it,
// so every mutation must drop all list variants for the owner (a new item
// may match a filter that was not in the mutating request's context).

// ItemKey is the single-item snapshot key.
func ItemKey(ownerID, itemID int64) string {
	return "user:" + strconv.FormatInt(ownerID, 10) + ":todo:" + strconv.FormatInt(itemID, 10)
}

// ListKey is the list snapshot key for an optional completion filter.
func ListKey(ownerID int64, completed *bool) string {
	key := "user:" + strconv.FormatInt(ownerID, 10) + ":todos"
	switch {
	case completed == nil:
		return key
	case *completed:
		return key + ":completed"
	default:
		return key + ":active"
	}
}

// ListKeys returns every list-shaped key for an owner: the unfiltered list
// and both filter variants.
func ListKeys(ownerID int64) []string {
	t, f := true, false
	return []string{
		ListKey(ownerID, nil),
		ListKey(ownerID, &t),
		ListKey(ownerID, &f),
	}
}
