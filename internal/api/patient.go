package api

import (
	"errors"                           // Error matching
	"net/http"                         // HTTP status codes
	"strings"                          // String trimming
	"stroke_registry/internal/service" // Auth and patient services
	"stroke_registry/internal/session" // Session state

	"github.com/gin-gonic/gin" // Gin web framework
)

// DashboardHandler shows the number of stored patients
func DashboardHandler(patients *service.PatientService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		total, err := patients.Count(c.Request.Context()) // Count stored patients
		if err != nil {
			// Store unreachable, render the error page
			serverError(c, sessions, err, "Failed to count patients")
			return
		}
		render(c, sessions, http.StatusOK, "dashboard.html", "Dashboard", gin.H{"total": total})
	}
}

// CreatePatientPageHandler renders an empty patient form
func CreatePatientPageHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, sessions, http.StatusOK, "patient_create.html", "Add patient", gin.H{"patient": nil}) // No patient to prefill
	}
}

// CreatePatientHandler stores a new patient from the submitted form
func CreatePatientHandler(patients *service.PatientService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Parse the urlencoded body
		if err := c.Request.ParseForm(); err != nil {
			flashRedirect(c, sessions, "danger", "Could not read the submitted form.", "/patients/create")
			return
		}
		_, err := patients.Create(c.Request.Context(), c.Request.PostForm) // Coerce and insert
		switch {
		case err == nil:
			flashRedirect(c, sessions, "success", "Patient added successfully!", "/patients")
		case errors.Is(err, service.ErrMalformedInput):
			// Name the offending field and send the user back to the form
			flashRedirect(c, sessions, "danger", "Invalid patient data: "+fieldProblem(err), "/patients/create")
		default:
			_ = c.Error(err) // Picked up by the request logger
			flashRedirect(c, sessions, "danger", "Could not save the patient. Please try again.", "/patients/create")
		}
	}
}

// ListPatientsHandler renders every patient
func ListPatientsHandler(patients *service.PatientService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := patients.List(c.Request.Context()) // Every patient, insertion order
		if err != nil {
			serverError(c, sessions, err, "Failed to list patients")
			return
		}
		render(c, sessions, http.StatusOK, "patients_list.html", "Patients", gin.H{"patients": list})
	}
}

// ViewPatientHandler shows one patient by ref
func ViewPatientHandler(patients *service.PatientService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := patients.View(c.Request.Context(), c.Param("id")) // Look up by ref
		// Malformed and absent refs both land here
		if errors.Is(err, service.ErrNotFound) {
			flashRedirect(c, sessions, "warning", "Patient not found.", "/patients")
			return
		}
		if err != nil {
			serverError(c, sessions, err, "Failed to load patient")
			return
		}
		render(c, sessions, http.StatusOK, "patient_view.html", "Patient", gin.H{"patient": p})
	}
}

// EditPatientPageHandler renders the form prefilled with the stored patient
func EditPatientPageHandler(patients *service.PatientService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := patients.View(c.Request.Context(), c.Param("id")) // Load current values
		if errors.Is(err, service.ErrNotFound) {
			flashRedirect(c, sessions, "warning", "Patient not found.", "/patients")
			return
		}
		if err != nil {
			serverError(c, sessions, err, "Failed to load patient")
			return
		}
		render(c, sessions, http.StatusOK, "patient_edit.html", "Edit patient", gin.H{"patient": p})
	}
}

// EditPatientHandler applies the submitted fields to a stored patient
func EditPatientHandler(patients *service.PatientService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := c.Param("id") // Patient ref from the path
		// Input errors return to the edit form
		back := "/patients/edit/" + ref
		if err := c.Request.ParseForm(); err != nil {
			flashRedirect(c, sessions, "danger", "Could not read the submitted form.", back)
			return
		}
		err := patients.Edit(c.Request.Context(), ref, c.Request.PostForm) // Only submitted fields change
		switch {
		case err == nil:
			flashRedirect(c, sessions, "success", "Patient updated successfully!", "/patients")
		case errors.Is(err, service.ErrNotFound):
			flashRedirect(c, sessions, "warning", "Patient not found.", "/patients")
		case errors.Is(err, service.ErrMalformedInput):
			flashRedirect(c, sessions, "danger", "Invalid patient data: "+fieldProblem(err), back)
		default:
			_ = c.Error(err) // Picked up by the request logger
			flashRedirect(c, sessions, "danger", "Could not update the patient. Please try again.", back)
		}
	}
}

// fieldProblem strips the sentinel prefix from a malformed-input error
func fieldProblem(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrMalformedInput.Error()+": ")
}
