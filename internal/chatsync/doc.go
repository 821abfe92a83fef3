// Package chatsync keeps a locally rendered conversation consistent with the
// paginated, append-only message log on the server.
//
// A Session owns one conversation's Store. Older history is pulled through
// LoadOlder and merged in front of what is already shown; outgoing text goes
// through Send, which appends an optimistic message immediately and swaps it
// for the server copy once the create call returns. Failed sends stay in place
// until Retry drives them again.
//
// Display order is insertion order. The store is never sorted by timestamp.
package chatsync
