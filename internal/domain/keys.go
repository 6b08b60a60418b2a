package domain

// KeyPrefix namespaces every key this service writes to the shared KV store.
const KeyPrefix = "carbonfactors:"
