package domain

// Post is a rich text message: a title, field sections and a footer
type Post struct {
	Title       string
	Description string
	Fields      []PostField
	Footer      string
}

// PostField is one named block of a post
type PostField struct {
	Name  string
	Value string
}
