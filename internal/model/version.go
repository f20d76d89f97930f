package model

// SchemaVersion is the document schema version written by the stores.
const SchemaVersion = "1"
