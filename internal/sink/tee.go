package sink

import (
	"context"
	"errors"
)

// Tee fans every table out to several providers
func Tee(providers ...Provider) Provider {
	if len(providers) == 1 {
		return providers[0]
	}
	return teeProvider(providers)
}

type teeProvider []Provider

func (t teeProvider) Open(ctx context.Context, table string) (Sink, error) {
	sinks := make(teeSink, 0, len(t))
	for _, p := range t {
		s, err := p.Open(ctx, table)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func (t teeProvider) Close() error {
	var errs []error
	for _, p := range t {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

type teeSink []Sink

func (t teeSink) WriteHeader(columns []string) error {
	for _, s := range t {
		if err := s.WriteHeader(columns); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) WriteRow(fields []Field) error {
	for _, s := range t {
		if err := s.WriteRow(fields); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
