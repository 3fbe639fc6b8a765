package wsclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sonirico/emitter"
)

type (
	// OpenConnectionParams holds what is needed to dial: the endpoint and the
	// handshake headers. They are resolved again on every dial so that tokens
	// embedded in them can be refreshed between reconnections.
	OpenConnectionParams struct {
		URL    url.URL
		Header http.Header
	}

	OpenConnectionParamsGetter func(ctx context.Context) (OpenConnectionParams, error)

	OpenConnectionParamsRepo struct {
		logger emitter.Logger
		getter OpenConnectionParamsGetter
	}
)

func (r OpenConnectionParamsRepo) Get(
	ctx context.Context,
) (params OpenConnectionParams, err error) {
	if r.getter == nil {
		return params, errors.Wrap(ErrCannotConnect, "no connection params getter configured")
	}

	params, err = r.getter(ctx)
	if err != nil && r.logger != nil {
		r.logger.Errorf("cannot fetch open connection params: %s", err)
	}
	return
}

func NewOpenConnectionParamsRepo(
	logger emitter.Logger,
	getter OpenConnectionParamsGetter,
) OpenConnectionParamsRepo {
	return OpenConnectionParamsRepo{getter: getter, logger: logger}
}

// StaticOpenConnectionParams returns a getter that always dials rawURL with header.
func StaticOpenConnectionParams(rawURL string, header http.Header) OpenConnectionParamsGetter {
	return func(context.Context) (OpenConnectionParams, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return OpenConnectionParams{}, errors.Wrapf(err, "parse %q", rawURL)
		}
		return OpenConnectionParams{URL: *u, Header: header}, nil
	}
}
