package internal

// EnvPrefix is a prefix of ENV variables related
// to the storage configuration.
const EnvPrefix = "aim"

// EnvSeparator is a section separator in ENV variables.
const EnvSeparator = "_"
