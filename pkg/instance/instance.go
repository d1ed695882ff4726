package instance

import "os"

// GetID identifies the running process in logs. Platform dyno names win over
// the hostname; "local" is the last resort.
func GetID() string {
	for _, key := range []string{"DISHDASH_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
