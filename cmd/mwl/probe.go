package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/mwlbridge/client"
	"github.com/caio-sobreiro/mwlbridge/dicom"
	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/types"
)

type probeFlags struct {
	addr      string
	callingAE string
	calledAE  string
}

func (f *probeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.addr, "addr", "127.0.0.1:11112", "worklist SCP address")
	cmd.Flags().StringVar(&f.callingAE, "calling-ae", "MWL_PROBE", "our AE title")
	cmd.Flags().StringVar(&f.calledAE, "called-ae", "MWL_SCP", "the SCP's AE title")
}

func (f *probeFlags) connect() (*client.Association, error) {
	return client.Connect(f.addr, client.Config{
		CallingAETitle: f.callingAE,
		CalledAETitle:  f.calledAE,
	})
}

func echoCmd() *cobra.Command {
	var flags probeFlags

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Send a C-ECHO to a worklist SCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			assoc, err := flags.connect()
			if err != nil {
				return err
			}
			defer assoc.Close()

			rsp, err := assoc.SendCEcho(1)
			if err != nil {
				return err
			}
			if rsp.Status != types.StatusSuccess {
				return fmt.Errorf("C-ECHO failed with status 0x%04x", rsp.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "C-ECHO %s: success\n", flags.addr)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func findCmd() *cobra.Command {
	var (
		flags    probeFlags
		modality string
		date     string
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Query a worklist SCP and print the scheduled procedures",
		RunE: func(cmd *cobra.Command, args []string) error {
			assoc, err := flags.connect()
			if err != nil {
				return err
			}
			defer assoc.Close()

			responses, err := assoc.SendCFind(&client.CFindRequest{Dataset: client.WorklistQuery(modality, date)})
			if err != nil {
				return describeFindError(err)
			}
			printMatches(cmd.OutOrStdout(), client.Matches(responses))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&modality, "modality", "", "modality to match (empty matches all)")
	cmd.Flags().StringVar(&date, "date", "", "scheduled date YYYYMMDD or range YYYYMMDD-YYYYMMDD")
	return cmd
}

// describeFindError turns a failed terminal status into an operator message.
func describeFindError(err error) error {
	var dimseErr *dicomerrors.DIMSEError
	if !errors.As(err, &dimseErr) {
		return err
	}
	switch {
	case dimseErr.IsCancel():
		return fmt.Errorf("C-FIND cancelled by the SCP (status 0x%04x)", dimseErr.Status)
	case dimseErr.IsFailure():
		return fmt.Errorf("C-FIND failed with status 0x%04x: %s", dimseErr.Status, dimseErr.Msg)
	default:
		return fmt.Errorf("C-FIND ended with status 0x%04x: %s", dimseErr.Status, dimseErr.Msg)
	}
}

func printMatches(w io.Writer, matches []*dicom.Dataset) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCESSION\tPATIENT\tPATIENT ID\tMODALITY\tDATE\tTIME")
	for _, ds := range matches {
		var modality, date, tm string
		if items := ds.GetSequence(dicom.TagScheduledProcedureStepSequence); len(items) > 0 {
			sps := items[0]
			modality = sps.GetString(dicom.TagModality)
			date = sps.GetString(dicom.TagScheduledProcedureStepStartDate)
			tm = sps.GetString(dicom.TagScheduledProcedureStepStartTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ds.GetString(dicom.TagAccessionNumber),
			ds.GetString(dicom.TagPatientName),
			ds.GetString(dicom.TagPatientID),
			modality, date, tm)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d match(es)\n", len(matches))
}
