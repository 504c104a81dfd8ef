//go:build !windows

package mapping

// fromRegistry is a no-op off Windows; the sync client only records its
// accounts in the registry there.
func fromRegistry() []Mapping {
	return nil
}
