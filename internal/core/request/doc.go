// Package request holds the per-request object built by the request
// initializer: run mode, validated method and script, parameters, cookies,
// session binding, locale, user configuration and the database handle the
// request exclusively owns.
package request
