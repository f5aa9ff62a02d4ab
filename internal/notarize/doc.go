// Package notarize submits signed macOS bundles and installer packages to
// Apple's notarization service and waits for the verdict.
//
// The Client drives `xcrun notarytool submit --wait`, decodes its plist output
// and staples accepted tickets. Credentials come from a CredentialSource:
// environment variables by default, or a JSON secret in AWS Secrets Manager.
package notarize
