package domain

// Collection maps a resource type name to the records fetched for it.
// Order within a slice is fetch order; formatters apply their own sorts.
type Collection map[string][]Record

// Organize groups a flat fetch result by resource type. Every input record
// lands in exactly one group; records with no type tag group under Unknown.
func Organize(records []Record) Collection {
	organized := make(Collection)
	for _, rec := range records {
		key := rec.Type
		if key == "" {
			key = TypeUnknown
		}
		organized[key] = append(organized[key], rec)
	}
	return organized
}

// TotalRecords returns the number of records across all groups.
func (c Collection) TotalRecords() int {
	total := 0
	for _, records := range c {
		total += len(records)
	}
	return total
}
