package branches

// Registry is the authoritative collection of branch records for the current session, keyed by name.
// It keeps listing order and is owned by a single goroutine.
type Registry struct {
	records     []BranchRecord
	indexByName map[string]int
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{indexByName: map[string]int{}}
}

// Upsert replaces the record with the same name or appends a new one.
func (registry *Registry) Upsert(record BranchRecord) {
	if existingIndex, exists := registry.indexByName[record.Name]; exists {
		registry.records[existingIndex] = record
		return
	}
	registry.indexByName[record.Name] = len(registry.records)
	registry.records = append(registry.records, record)
}

// Contains reports whether a record exists for the name.
func (registry *Registry) Contains(name string) bool {
	_, exists := registry.indexByName[name]
	return exists
}

// Lookup returns the record stored for the name.
func (registry *Registry) Lookup(name string) (BranchRecord, bool) {
	recordIndex, exists := registry.indexByName[name]
	if !exists {
		return BranchRecord{}, false
	}
	return registry.records[recordIndex], true
}

// Remove deletes the record for the name and reports whether one existed.
func (registry *Registry) Remove(name string) bool {
	recordIndex, exists := registry.indexByName[name]
	if !exists {
		return false
	}
	registry.records = append(registry.records[:recordIndex], registry.records[recordIndex+1:]...)
	delete(registry.indexByName, name)
	for shiftedIndex := recordIndex; shiftedIndex < len(registry.records); shiftedIndex++ {
		registry.indexByName[registry.records[shiftedIndex].Name] = shiftedIndex
	}
	return true
}

// Clear drops every record.
func (registry *Registry) Clear() {
	registry.records = nil
	registry.indexByName = map[string]int{}
}

// Len returns the number of records.
func (registry *Registry) Len() int {
	return len(registry.records)
}

// Snapshot copies the records in listing order.
func (registry *Registry) Snapshot() []BranchRecord {
	snapshot := make([]BranchRecord, len(registry.records))
	copy(snapshot, registry.records)
	return snapshot
}
