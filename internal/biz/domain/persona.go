package domain

// Persona is the composed, read-only prompt set of the bot.
// It is built once at startup with any salon memory already appended to
// both system prompts.
type Persona struct {
	Name               string
	ChatSystemPrompt   string
	ReportSystemPrompt string
	OwnerLabel         string
	MemberLabel        string

	ReplyTemplate  string // role label, message text
	FallbackReply  string
	DigestPrompt   string
	DigestFallback string
	MapTemplate    string // window label, chunk index, chunk count, log chunk
	ReduceTemplate string // window label, joined partial summaries
}
