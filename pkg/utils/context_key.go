package utils

// ContextKey avoids collisions on values stored in request contexts by the
// JWT middleware.
type ContextKey string
