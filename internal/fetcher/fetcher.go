package fetcher

import (
	"context"

	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
)

type Fetcher interface {
	Fetch(
		ctx context.Context,
		fetchParam FetchParam,
	) (FetchResult, failure.ClassifiedError)
}
