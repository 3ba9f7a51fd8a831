// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package pollapi is the REST client for the remote poll service.

	client, err := pollapi.New("https://polls.example.com/api", tokens,
		pollapi.WithTimeout(15*time.Second),
		pollapi.WithPageLimit(20),
	)
	polls, err := client.ListPolls(ctx)

# Endpoints

	GET    /polls                        paginated {count, next, previous, results}
	POST   /polls                        create
	GET    /polls/{id}                   one poll
	DELETE /polls/{id}                   delete (owner)
	GET    /polls/{id}/allowed-users     allowlist (owner)
	POST   /polls/{id}/allowed-users     add {email}
	DELETE /polls/{id}/allowed-users     remove {email}
	POST   /votes                        {option}
	GET    /votes/me/{id}                {option_id} or null
	GET    /auth/lookup?email=           registered user by email
	POST   /auth/login, /auth/register, /auth/token/refresh
	GET    /auth/profile

ListPolls follows next links until they run out or the page limit is hit.
The bearer token is attached by middleware.WithBearer when one is stored.

# Errors

Failed calls return *APIError, which unwraps to a models sentinel:

  - 404: models.ErrNotFound
  - 401, 403: models.ErrNotPermitted
  - anything else, and transport failures: models.ErrNetworkFailure

Use IsStatus to test for a specific status code.

Authenticator binds the auth endpoints to an auth.Session so that login,
refresh and logout update the stored tokens.
*/
package pollapi
