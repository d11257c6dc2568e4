// Package github fetches pull request diffs from the GitHub API.
//
// Authentication uses a personal access token (classic or fine-grained) with
// read access to the repository contents and pull requests. The token is
// wrapped in an oauth2 static token source and handed to go-github.
package github
