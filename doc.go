/*
Package parley is a runtime for branching, conditional conversations.

A Dialogue is a directed graph of nodes joined by ordered child links. Conditions
gate which links are available, events mutate a typed Data Bag and notify
participants, and selector nodes pick a child on their own. A Context walks one
conversation through the graph; many contexts may share one immutable Dialogue.

# Concept

The engine owns the dialogue catalog and the collaborators every conversation
shares (custom condition registry, long-term memory, lifecycle hooks). The host owns
participants and presentation: it binds participant handles into a Bag, renders the
current View and chooses options by index.

# Usage

	b := dsl.New("tavern").Participants("barkeep")
	b.Add("greet").Says("barkeep", "What'll it be?").
		Option("ale", "An ale.").
		Option("bye", "Nothing.")
	b.Add("ale").Says("barkeep", "Here you go.").Go("bye")
	b.Add("bye").End()

	eng := parley.New()
	if err := eng.Register(b.MustBuild()); err != nil {
		log.Fatal(err)
	}

	c, err := eng.CreateContext(ctx, "tavern", nil)
	if err != nil {
		log.Fatal(err)
	}
	for !c.IsFinished() {
		view := c.View()
		// Render view.Text and view.Options, then:
		if _, err := c.ChooseOption(ctx, 0); err != nil {
			log.Fatal(err)
		}
	}

Dialogues can also be authored as YAML or JSON documents and loaded from a Loam
repository with Open. Sessions persists conversations in a SnapshotStore so they
survive restarts and can be served by several replicas.
*/
package parley
