/*
Package session implements per-channel session access on top of the state store.

Manager loads sessions (creating the empty shell for unknown channels), clears
flow or full state, and can serialize work per channel. Serialization is off by
default: concurrent messages for one channel are last-writer-wins. WithSerialize
turns on an in-process lock and WithLocker adds a distributed one shared by
every replica.
*/
package session
