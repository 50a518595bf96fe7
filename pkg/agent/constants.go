package agent

// MaxDescriptionSize is the maximum allowed size for a problem description
// (64 KiB). Descriptions exceeding this limit are rejected at API submission
// time (HTTP 413); everything under it flows into the investigation prompt.
const MaxDescriptionSize = 64 * 1024
