// Package importer fetches blueprint documents from URLs and turns
// them into validated blueprints ready for preview or saving.
//
// # Fetch Pipeline
//
//  1. Normalize the URL: GitHub blob URLs are rewritten to their
//     raw-content form; anything that is not http or https is rejected
//     with ErrUnsupportedScheme.
//  2. GET with bounded retries (exponential backoff on connection
//     errors, 429 and 5xx) and a per-request timeout.
//  3. Enforce the response size cap (ErrResponseTooLarge).
//  4. Parse the YAML and construct a Blueprint, which applies the full
//     schema validation. Blueprints declaring a domain this service
//     does not manage are rejected.
//  5. Stamp the blueprint's source_url metadata with the submitted URL.
//
// # Usage
//
//	imp := importer.New(cfg.Importer, cfg.Core.Domains)
//
//	result, err := imp.Fetch(ctx, "https://github.com/owner/repo/blob/main/motion.yaml")
//	if err != nil {
//	    return err
//	}
//
//	// Preview only; saving goes through the domain registry.
//	reg, _ := registries.Domain(result.Blueprint.Domain())
//	path, err := reg.Add(result.Blueprint, result.SuggestedPath)
//
// Fetching never writes anything. The split keeps dry-run imports (show
// the user what a URL contains) and saves (create-only, conflicts
// surface as FileAlreadyExistsError) on separate paths.
package importer
