package domain

// ChannelID zero is the implicit channel used when an event names none.
type ChannelID int

const NoChannel ChannelID = 0

type Channel struct {
	ID       ChannelID `json:"id"`
	Name     string    `json:"name" validate:"required"`
	Position int       `json:"position"`
	Archived bool      `json:"archived"`
}

func (c Channel) Validate() error {
	return validate.Struct(c)
}
