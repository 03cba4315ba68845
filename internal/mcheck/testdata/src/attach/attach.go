package attach

type Attachment struct{}

func (a *Attachment) Release() {}

type Contract struct{}

func (c *Contract) Attach(state string) *Attachment {
	return &Attachment{}
}

type Other struct{}

func (o Other) Attach(state string) int {
	return 0
}

func dispatch(c *Contract, o Other) {
	guard := c.Attach("state")
	defer guard.Release()

	c.Attach("state") // want "attachment is discarded and never released"

	_ = c.Attach("state") // want "attachment is discarded and never released"

	o.Attach("state")
}
