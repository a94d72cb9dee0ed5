// Package dispatch sends scope-gated, bearer-authenticated requests to a REST API.
//
// A RequestSpec names the resource, optional id, query parameters and the scopes the
// call requires. Dispatcher.Dispatch checks those scopes first: when they were not
// granted it returns a gated Result holding the empty JSON object and performs no
// network activity. Otherwise it obtains a token from its TokenProvider, builds the
// endpoint as base/version/resource[/id][?query] and issues the request.
//
// GET results expose the body through gjson accessors; PUT, POST and DELETE results
// are marked Acknowledged. Non-2xx responses become a *RequestError.
package dispatch
