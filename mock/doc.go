// Package mock provides controllable stand-ins for the Docker Engine API and
// the logging sink, for testing code built on tsaotun.
//
// Usage:
//
//	api := mock.New()
//	api.On("ContainerRemove", mock.Anything, "web", mock.Anything).Return(nil)
//	engine := tsaotun.NewEngine(api, tsaotun.WithLogger(mock.NewRecorder()))
package mock
