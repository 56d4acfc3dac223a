package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

var patientJSON bool

var patientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Inspect patient records",
}

var patientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all patients",
	Args:  cobra.NoArgs,
	RunE:  runPatientList,
}

var patientShowCmd = &cobra.Command{
	Use:   "show [patient-id]",
	Short: "Show a patient's demographics and medical history",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatientShow,
}

func init() {
	patientCmd.PersistentFlags().BoolVar(&patientJSON, "json", false, "output as JSON")
	patientCmd.AddCommand(patientListCmd)
	patientCmd.AddCommand(patientShowCmd)
	rootCmd.AddCommand(patientCmd)
}

func runPatientList(cmd *cobra.Command, _ []string) error {
	if err := useServices(cmd, false, 0); err != nil {
		return err
	}
	if patientService == nil {
		return errors.New("patient service not configured")
	}

	patients, err := patientService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing patients: %w", err)
	}

	if patientJSON {
		return outputJSON(cmd, patients)
	}
	if len(patients) == 0 {
		cmd.Println("No patients found.")
		return nil
	}
	for _, p := range patients {
		cmd.Printf("  %s\n", p.Display())
	}
	return nil
}

func runPatientShow(cmd *cobra.Command, args []string) error {
	if err := useServices(cmd, false, 0); err != nil {
		return err
	}
	if patientService == nil {
		return errors.New("patient service not configured")
	}

	profile, err := patientService.Profile(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("patient %s not found", args[0])
		}
		return fmt.Errorf("getting patient: %w", err)
	}

	if patientJSON {
		return outputJSON(cmd, profile)
	}

	d := profile.Demographics
	cmd.Printf("Patient %s\n", profile.PatientID)
	cmd.Println(strings.Repeat("=", len("Patient ")+len(profile.PatientID)))
	cmd.Printf("  Name:   %s\n", orDash(d.Name))
	cmd.Printf("  Age:    %s\n", orDash(d.Age))
	cmd.Printf("  Gender: %s\n", orDash(d.Gender))
	for k, v := range d.Extra {
		cmd.Printf("  %s: %s\n", k, v)
	}
	cmd.Println()

	h := profile.MedicalHistory
	cmd.Printf("  Chronic conditions:  %s\n", joinOrNone(h.ChronicConditions))
	cmd.Printf("  Allergies:           %s\n", joinOrNone(h.Allergies))
	cmd.Printf("  Current medications: %s\n", joinOrNone(h.CurrentMedications))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none recorded"
	}
	return strings.Join(items, ", ")
}
