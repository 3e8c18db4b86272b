package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/internal/submissions"
	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Post actions understood by the session page.
const (
	actionNext   = "next"
	actionBack   = "back"
	actionJump   = "jump"
	actionSubmit = "submit"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}

	attendee := ""
	if cookie, err := r.Cookie(attendeeCookie); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			attendee = cookie.Value
		}
	}
	if attendee == "" {
		attendee = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     attendeeCookie,
			Value:    attendee,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	opts := []engine.Option{engine.WithName(entry.Name), engine.WithLogger(s.logger)}
	if s.deps.Metrics != nil {
		opts = append(opts, engine.WithObserver(s.deps.Metrics))
	}
	sess := s.sessions.create(entry.Name, attendee, engine.New(entry.Result, opts...))

	s.logger.Debug().Str("form", entry.Name).Str("session", sess.ID).Msg("session created")
	http.Redirect(w, r, sessionPath(sess.ID), http.StatusSeeOther)
}

func (s *Server) handleShowSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, done := sess.registered(); done {
		s.writeConfirmation(w, r, sess)
		return
	}

	notice := ""
	exists, err := s.deps.Registrations.Exists(r.Context(), sess.Form, sess.Attendee)
	if err != nil {
		s.logger.Warn().Err(err).Str("form", sess.Form).Msg("registration lookup failed")
	} else if exists {
		notice = submissions.DuplicateMessage
	}
	s.writeForm(w, r, sess, http.StatusOK, notice)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, done := sess.registered(); done {
		http.Redirect(w, r, sessionPath(sess.ID), http.StatusSeeOther)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
	} else if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	s.applyPost(sess, r)

	action, step := parseAction(r.PostForm.Get(render.ActionField), r.PostForm.Get(render.StepField))
	switch action {
	case actionNext:
		if !sess.form.Next() {
			s.writeForm(w, r, sess, statusFor(sess.form), "")
			return
		}
	case actionBack:
		sess.form.Back()
	case actionJump:
		sess.form.JumpTo(step)
	case actionSubmit:
		s.submit(w, r, sess)
		return
	default:
		s.writeForm(w, r, sess, statusFor(sess.form), "")
		return
	}
	http.Redirect(w, r, sessionPath(sess.ID), http.StatusSeeOther)
}

// applyPost feeds the posted controls of the active partition into the
// session. File selections go through tickets so a slower concurrent post
// cannot overwrite a newer selection.
func (s *Server) applyPost(sess *session, r *http.Request) {
	form := sess.form
	partition, ok := form.Schema().Partition(form.Stepper().Index)
	if !ok {
		return
	}
	for _, event := range eventsFromForm(partition, r.PostForm) {
		form.Change(event)
	}
	for _, field := range partition.Fields {
		if field.Kind != schema.KindFile || !field.Contributes() {
			continue
		}
		files, chosen := uploadedFiles(r.MultipartForm, field.Name)
		if !chosen {
			continue
		}
		ticket := form.BeginFileRead(field.Name)
		form.CompleteFileRead(ticket, files)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, sess *session) {
	var record submissions.Record
	called, err := sess.form.Submit(r.Context(), func(ctx context.Context, values map[string]any) error {
		saved, err := s.deps.Registrations.Save(ctx, sess.Form, sess.Attendee, values)
		if errors.Is(err, submissions.ErrDuplicate) {
			return fmt.Errorf("%w: %w", metrics.ErrDuplicateSubmission, err)
		}
		if err != nil {
			return err
		}
		record = saved
		return nil
	})

	switch {
	case errors.Is(err, engine.ErrNotFinalPartition):
		s.writeForm(w, r, sess, http.StatusConflict, "")
	case errors.Is(err, submissions.ErrDuplicate):
		s.writeForm(w, r, sess, http.StatusConflict, submissions.DuplicateMessage)
	case err != nil:
		s.logger.Error().Err(err).Str("form", sess.Form).Str("session", sess.ID).Msg("store registration failed")
		http.Error(w, "could not store registration", http.StatusInternalServerError)
	case !called:
		s.writeForm(w, r, sess, statusFor(sess.form), "")
	default:
		sess.complete(record)
		http.Redirect(w, r, sessionPath(sess.ID), http.StatusSeeOther)
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "session")
	sess, ok := s.sessions.get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
	}
	return sess, ok
}

func (s *Server) writeForm(w http.ResponseWriter, r *http.Request, sess *session, status int, notice string) {
	out, err := s.deps.Renderer.Render(r.Context(), sess.form.View(), render.RenderOptions{
		Action: sessionPath(sess.ID),
		Notice: notice,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("form", sess.Form).Msg("render form failed")
		http.Error(w, "could not render form", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", s.deps.Renderer.ContentType())
	w.WriteHeader(status)
	w.Write(out)
}

func (s *Server) writeConfirmation(w http.ResponseWriter, r *http.Request, sess *session) {
	out, err := s.deps.Renderer.RenderMessage("Registered", fmt.Sprintf("Thank you, your registration for %s has been received.", sess.Form))
	if err != nil {
		s.logger.Error().Err(err).Str("form", sess.Form).Msg("render confirmation failed")
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", s.deps.Renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// statusFor answers 422 while the session shows validation errors.
func statusFor(form *engine.Form) int {
	if form.State().HasErrors() {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

// parseAction accepts "jump:N" from step buttons as well as "jump" with a
// separate step value.
func parseAction(action, step string) (string, int) {
	action = strings.TrimSpace(action)
	if rest, ok := strings.CutPrefix(action, actionJump+":"); ok {
		action, step = actionJump, rest
	}
	idx, err := strconv.Atoi(strings.TrimSpace(step))
	if err != nil {
		idx = -1
	}
	return action, idx
}

func sessionPath(id string) string {
	return "/sessions/" + id
}
