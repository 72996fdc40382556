package storyline

// Version is the release of the engine and CLI.
const Version = "0.4.0"
