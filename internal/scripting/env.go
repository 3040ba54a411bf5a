package scripting

// DialogueAPI is the dialogue session a hook runs in.
type DialogueAPI interface {
	JumpTo(container, node string) error
	End()
}

// MoneyAPI is the player's cash balance.
type MoneyAPI interface {
	Balance() float64
	Change(delta float64) error
}

// MessagesAPI sends text messages from the NPC to the player.
type MessagesAPI interface {
	Send(text string) error
}

// UIAPI exposes modal UI the NPC can hand focus to.
type UIAPI interface {
	PreRegisterCharacterCreator() error
	OpenCharacterCreator() error
}

// Env carries the host capabilities visible to one hook call as the engine
// global. Nil fields make the corresponding engine functions raise a Lua
// error.
type Env struct {
	NPC      string
	Dialogue DialogueAPI
	Money    MoneyAPI
	Messages MessagesAPI
	UI       UIAPI
}
