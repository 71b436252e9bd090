package importer

// Import progress. Operations check state and refuse to run out of order.
// ENUM(created, sourceLoaded, metadataExtracted, assetsResolving, linksRewritten, committed)
type State int
