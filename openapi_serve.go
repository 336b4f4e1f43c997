package strut

import (
	"io"
	"net/http"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SpecJSON returns the OpenAPI document as indented JSON with sorted
// object keys. The bytes are cached until the next registration, so
// repeated calls over an unchanged service return identical output.
func (s *Service) SpecJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.specJSON != nil {
		return s.specJSON, nil
	}
	data, err := jsonMarshalIndent(s.OpenAPI(), "", "  ")
	if err != nil {
		return nil, err
	}
	s.specJSON = data
	return data, nil
}

// SpecYAML returns the OpenAPI document as YAML. The JSON form is the
// source of truth; it is decoded into plain maps first so the YAML
// encoder sees the JSON field names.
func (s *Service) SpecYAML() ([]byte, error) {
	s.mu.Lock()
	specYAML := s.specYAML
	s.mu.Unlock()
	if specYAML != nil {
		return specYAML, nil
	}

	data, err := s.SpecJSON()
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := jsonUnmarshal(data, &doc); err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.specYAML = out
	s.mu.Unlock()
	return out, nil
}

// WriteSpec writes the OpenAPI document as indented JSON to w.
func (s *Service) WriteSpec(w io.Writer) error {
	data, err := s.SpecJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteSpecYAML writes the OpenAPI document as YAML to w.
func (s *Service) WriteSpecYAML(w io.Writer) error {
	data, err := s.SpecYAML()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ServeSpec registers a GET endpoint at the given template that serves
// the OpenAPI document as JSON. The endpoint itself does not appear in
// the document.
func (s *Service) ServeSpec(template string) error {
	return s.registerHidden(template, func(w http.ResponseWriter, _ *http.Request) {
		data, err := s.SpecJSON()
		if err != nil {
			s.writeProblem(w, w.Header().Get(RequestIDHeader), NewProblem(http.StatusInternalServerError, "document generation failed"))
			return
		}
		w.Header().Set("Content-Type", mediaJSON)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	})
}

// ServeSpecYAML registers a GET endpoint at the given template that
// serves the OpenAPI document as YAML.
func (s *Service) ServeSpecYAML(template string) error {
	return s.registerHidden(template, func(w http.ResponseWriter, _ *http.Request) {
		data, err := s.SpecYAML()
		if err != nil {
			s.writeProblem(w, w.Header().Get(RequestIDHeader), NewProblem(http.StatusInternalServerError, "document generation failed"))
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	})
}

// registerHidden mounts a GET handler that serves but is not documented.
func (s *Service) registerHidden(template string, h http.HandlerFunc) error {
	ep := &endpoint{
		method:      http.MethodGet,
		rawTemplate: template,
		rawHandler:  h,
		response:    ResponseSpec{Dynamic: true},
		hidden:      true,
	}
	return s.register(ep)
}
