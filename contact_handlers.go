package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/SahilBhatkande/portfolio/internal/contact"
	"github.com/SahilBhatkande/portfolio/pkg/apperror"
	"github.com/SahilBhatkande/portfolio/pkg/response"

	"github.com/gin-gonic/gin"
)

type contactFormData struct {
	FormID   string
	Heading  string
	Intro    string
	View     contact.View
	Sending  bool
	Fallback string
}

func (s *server) contactFormData(id string, v contact.View) contactFormData {
	return contactFormData{
		FormID:   id,
		Heading:  ContactHeading,
		Intro:    ContactIntro,
		View:     v,
		Sending:  v.State == contact.StateSending,
		Fallback: s.cfg.ContactFallback,
	}
}

// submit runs the attempt detached from the HTTP request so a closed tab does
// not cancel a send that is already in flight.
func (s *server) submit(c *gin.Context, form *contact.Controller, req contact.Request) (contact.Outcome, error) {
	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := form.Submit(ctx, req)
	s.recordContactAttempt(c, outcome)
	return outcome, err
}

// Handle contact form submission with HTMX
func (s *server) submitContactForm(c *gin.Context) {
	var req contact.Request
	if err := c.ShouldBind(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid form submission"))
		return
	}

	id, form := s.forms.Get(c.PostForm("form"))
	outcome, err := s.submit(c, form, req)
	if err != nil {
		s.log.Debug("contact submit", "outcome", outcome.String(), "error", err)
	}

	data := s.contactFormData(id, form.View())
	if outcome == contact.OutcomeRejected {
		// Nothing was sent; echo the typed values back untouched and drop
		// whatever the previous attempt reported.
		data.View.Fields = req
		data.View.Notice = nil
	}
	c.HTML(http.StatusOK, "contact.html", data)
}

type contactAPIRequest struct {
	FormID  string `json:"form_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// JSON variant of the contact form for clients that are not the page itself.
func (s *server) submitContactAPI(c *gin.Context) {
	var body contactAPIRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(apperror.BadRequest("Request body must be JSON"))
		return
	}

	id, form := s.forms.Get(body.FormID)
	outcome, err := s.submit(c, form, contact.Request{
		Name:    body.Name,
		Email:   body.Email,
		Message: body.Message,
	})

	switch outcome {
	case contact.OutcomeSucceeded:
		response.Success(c, http.StatusOK, ContactSuccess, gin.H{"form_id": id})
	case contact.OutcomeRejected:
		c.Error(apperror.Unprocessable("Name, email and message are required.", err))
	case contact.OutcomeBusy:
		c.Error(apperror.Conflict("Your previous message is still being sent.", err))
	default:
		c.Error(apperror.BadGateway(fmt.Sprintf("%s %s", ContactFailure, s.cfg.ContactFallback), err))
	}
}

func (s *server) recordContactAttempt(c *gin.Context, outcome contact.Outcome) {
	if outcome == contact.OutcomeBusy {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
	defer cancel()
	if err := s.store.recordContactAttempt(ctx, outcome.String(), s.admin.hashIP(c.ClientIP()), time.Now()); err != nil {
		s.log.Warn("Error recording contact attempt", "error", err)
	}
}
