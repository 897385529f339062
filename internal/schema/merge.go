package schema

import "fmt"

// Merge copies the requested remote component definitions into local. Local
// definitions are never overwritten; a name bound to a different pattern on
// the two sides is a conflict. Requested components missing from the remote
// schema are reported as unknown.
func Merge(local, remote *Schema, requested []string) error {
	names := requested
	if len(names) == 0 {
		names = remote.Names()
	}
	for _, name := range names {
		remoteDef, ok := remote.Components[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownComponent, name)
		}
		localDef, exists := local.Components[name]
		if exists {
			if localDef.Pattern != remoteDef.Pattern {
				return fmt.Errorf("%w: %s is %q locally but %q remotely",
					ErrConflict, name, localDef.Pattern, remoteDef.Pattern)
			}
			continue
		}
		if err := local.AddComponent(name, remoteDef); err != nil {
			return err
		}
	}
	return nil
}
