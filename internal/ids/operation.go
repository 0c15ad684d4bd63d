package ids

import "github.com/google/uuid"

// OperationID returns a UUID v7 naming one engine invocation in results and
// log lines. UUID v7 sorts by creation time.
func OperationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
