// Note HTTP handlers.
//
//   - GET    /notes?applicationId={id}   (newest first)
//   - POST   /notes
//   - DELETE /notes/{id}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// ListNotes godoc
// @ID          listNotes
// @Summary     List notes of an application
// @Tags        Notes
// @Produce     json
// @Param       applicationId  query     int  true  "Application ID"  minimum(1)
// @Success     200            {array}   domain.Note
// @Failure     400            {object}  handlers.ErrorResponse "Missing or malformed applicationId"
// @Failure     404            {object}  handlers.ErrorResponse "Application not found"
// @Router      /notes [get]
func (h *Handlers) ListNotes(c *gin.Context) {
	appID, valid := queryApplicationID(c)
	if !valid {
		return
	}
	items, err := h.notes.List(c.Request.Context(), appID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateNote godoc
// @ID          createNote
// @Summary     Attach a note to an application
// @Tags        Notes
// @Accept      json
// @Produce     json
// @Param       body  body      domain.NewNote  true  "Note"
// @Success     201   {object}  domain.Note
// @Failure     400   {object}  handlers.ErrorResponse "Validation error"
// @Failure     404   {object}  handlers.ErrorResponse "Application not found"
// @Router      /notes [post]
func (h *Handlers) CreateNote(c *gin.Context) {
	var in domain.NewNote
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	n, err := h.notes.Create(c.Request.Context(), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, n)
}

// DeleteNote godoc
// @ID          deleteNote
// @Summary     Delete a note
// @Tags        Notes
// @Param       id   path  int  true  "Note ID"  minimum(1)
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Note not found"
// @Router      /notes/{id} [delete]
func (h *Handlers) DeleteNote(c *gin.Context) {
	id, valid := pathID(c, "note")
	if !valid {
		return
	}
	if err := h.notes.Delete(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
