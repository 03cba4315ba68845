package cli

// StringFlag defines a flag parsed as a string. When the flag is missing from
// the command line, the environment variable named by Env gives the value, and
// the default value is used otherwise.
//
// - implements cli.Flag
type StringFlag struct {
	Name     string
	Usage    string
	Env      string
	Required bool
	Value    string

	// File marks a flag holding a path so that the shell completes file names.
	File bool
}

// Key implements cli.Flag.
func (flag StringFlag) Key() string {
	return flag.Name
}

// IntFlag defines a flag parsed as an integer. It follows the same rules as
// StringFlag for the environment variable.
//
// - implements cli.Flag
type IntFlag struct {
	Name     string
	Usage    string
	Env      string
	Required bool
	Value    int
}

// Key implements cli.Flag.
func (flag IntFlag) Key() string {
	return flag.Name
}
