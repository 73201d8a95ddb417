package utils

import (
	"sync"
)

// LenSyncMap counts the entries of m. The count is a snapshot: concurrent
// stores and deletes may or may not be observed.
func LenSyncMap(m *sync.Map) int {
	var i int
	m.Range(func(k, v interface{}) bool {
		i++
		return true
	})
	return i
}
