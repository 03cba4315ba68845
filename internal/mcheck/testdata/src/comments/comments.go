package comments

// This comment is short enough.

// want "Comment too long......................................................................"

//go:generate this directive is ignored whatever its length is, even when it is way too long

func noop() {}
