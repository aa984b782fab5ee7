// Package cms reads and writes posts through the WordPress REST API.
//
// Fetch and Update authenticate with HTTP basic credentials (an application
// password) against the wp-json root configured in [cms] base_url. SEO meta
// title and description are stored in post meta keys, Yoast's by default.
package cms
