package app

// ActionRequest addresses one backend action.
type ActionRequest struct {
	Module   string
	Action   string
	Language string
	// Params are query parameters.
	Params map[string]string
	// Form holds submitted form values; empty for plain requests.
	Form map[string]string
}
