// Package feed defines the feed item model and renders item lists into the
// content-feed payload served by syndication endpoints.
//
// # Payload
//
// Render emits one block per item, in the order given:
//
//	<item>
//	  <title>...</title>
//	  <link>...</link>
//	  <description>...</description>
//	  <dc:creator>...</dc:creator>
//	  <dc:date>2024-3-7</dc:date>
//	</item>
//
// Field text is written verbatim. Nothing is XML-escaped, so callers that
// accept untrusted titles or descriptions must sanitise them before insert.
//
// # Dates
//
// CreatedAt is seconds since the Unix epoch. The rendered date is the UTC
// civil date without zero padding.
package feed
