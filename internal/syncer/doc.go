// Package syncer reconciles a local dataset with a remote one: it fetches the
// remote schema and index, intersects them with the user's filters, and pulls
// the resulting work set through a fixed-size worker pool with retry, size
// verification, and resumable per-file state.
//
// Pre-flight failures abort before any download. Per-file failures never do;
// they are recorded in the operation state so a later resume can retry them.
package syncer
