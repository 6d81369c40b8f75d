package services

// Outcome is the result of one upstream stage. A degraded outcome carries
// sentinel or error text that is still returned to the caller as content.
type Outcome struct {
	Content  string
	Degraded bool
	Err      error
}

func Ok(content string) Outcome {
	return Outcome{Content: content}
}

func Degraded(sentinel string, err error) Outcome {
	return Outcome{Content: sentinel, Degraded: true, Err: err}
}
