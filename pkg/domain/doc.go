/*
Package domain contains the core models of the dialogue engine.

It defines the graph a conversation walks and the data exchanged with hosts. The
package is pure data: no I/O, no persistence, no clocks beyond timestamps set by callers.

# Key Entities

  - Dialogue: the immutable graph (nodes, start nodes, participant and variable declarations).
  - Node: a vertex with a kind (text, selector, end, sequence, proxy, custom) and its children.
  - ChildLink: an ordered edge carrying its own conditions and events.
  - Condition / Event: closed sets of built-in predicates and side effects, plus a custom slot.
  - Value: the discriminated variable value held by a Data Bag.
  - Snapshot: the persisted cursor of a conversation, used to resume it later.
  - View: what a host renders for the current line.
*/
package domain
