package domain

// KeyPrefix namespaces every key this service writes to the counter/cache store.
const KeyPrefix = "aigate:"
