package txc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const txcNamespace = "http://www.transxchange.org.uk/"

// diamondDoc is a minimal single-service document with one timing link
const diamondDoc = `<?xml version="1.0" encoding="UTF-8"?>
<TransXChange xmlns="http://www.transxchange.org.uk/" SchemaVersion="2.4">
  <StopPoints>
    <AnnotatedStopPointRef>
      <StopPointRef>S1</StopPointRef>
      <CommonName>High Street</CommonName>
      <Location>
        <Longitude>-1.0</Longitude>
        <Latitude>51.0</Latitude>
      </Location>
    </AnnotatedStopPointRef>
    <AnnotatedStopPointRef>
      <StopPointRef>S2</StopPointRef>
      <CommonName>Market Square</CommonName>
      <Location>
        <Longitude>-1.01</Longitude>
        <Latitude>51.01</Latitude>
      </Location>
    </AnnotatedStopPointRef>
  </StopPoints>
  <JourneyPatternSections>
    <JourneyPatternSection id="JPS1">
      <JourneyPatternTimingLink id="JPTL1">
        <From SequenceNumber="1">
          <Activity>pickUp</Activity>
          <StopPointRef>S1</StopPointRef>
          <TimingStatus>PTP</TimingStatus>
        </From>
        <To SequenceNumber="2">
          <StopPointRef>S2</StopPointRef>
          <TimingStatus>OTH</TimingStatus>
        </To>
        <RouteLinkRef>RL1</RouteLinkRef>
        <RunTime>PT1M30S</RunTime>
      </JourneyPatternTimingLink>
    </JourneyPatternSection>
  </JourneyPatternSections>
  <Operators>
    <Operator id="O1">
      <NationalOperatorCode>DIAM</NationalOperatorCode>
      <OperatorCode>DIA</OperatorCode>
      <OperatorShortName>Diamond Bus</OperatorShortName>
      <LicenceNumber>PD0001</LicenceNumber>
    </Operator>
  </Operators>
  <Services>
    <Service>
      <ServiceCode>PB0001:14</ServiceCode>
      <Lines>
        <Line id="L1">
          <LineName>DIAM_14</LineName>
          <OutboundDescription>
            <Origin>Town</Origin>
            <Destination>Park</Destination>
            <Description>Town - Park</Description>
          </OutboundDescription>
          <InboundDescription>
            <Description>Park - Town</Description>
          </InboundDescription>
        </Line>
      </Lines>
      <OperatingPeriod>
        <StartDate>2026-01-01</StartDate>
        <EndDate>2026-12-31</EndDate>
      </OperatingPeriod>
      <PublicUse>true</PublicUse>
      <StandardService>
        <Origin>Town Centre</Origin>
        <Destination>Retail Park</Destination>
        <JourneyPattern id="JP1">
          <DestinationDisplay>Retail Park</DestinationDisplay>
          <Direction>outbound</Direction>
          <RouteRef>R1</RouteRef>
          <JourneyPatternSectionRefs>JPS1</JourneyPatternSectionRefs>
        </JourneyPattern>
      </StandardService>
    </Service>
    <Service>
      <ServiceCode>IGNORED</ServiceCode>
      <Lines><Line><LineName>SECOND</LineName></Line></Lines>
    </Service>
  </Services>
</TransXChange>`

// driftDoc nests containers one level deeper than the schema, uses AtcoCode
// stop points and contains links with missing stop references
const driftDoc = `<?xml version="1.0" encoding="UTF-8"?>
<TransXChange>
  <Network>
    <StopPoints>
      <StopPoint>
        <AtcoCode>A1</AtcoCode>
        <Descriptor><CommonName>Depot</CommonName></Descriptor>
        <Place>
          <Location>
            <Translation>
              <Longitude>-2.5</Longitude>
              <Latitude>52.5</Latitude>
            </Translation>
          </Location>
        </Place>
      </StopPoint>
    </StopPoints>
  </Network>
  <JourneyPatternSections>
    <JourneyPatternSection id="JPS9">
      <JourneyPatternTimingLink id="L1">
        <From><SequenceNumber>4</SequenceNumber><StopPointRef>A1</StopPointRef></From>
        <To><StopPointRef>UNKNOWN</StopPointRef></To>
        <RunTime>soon</RunTime>
      </JourneyPatternTimingLink>
      <JourneyPatternTimingLink id="L2">
        <RunTime>PT2M</RunTime>
      </JourneyPatternTimingLink>
      <JourneyPatternTimingLink id="L3">
        <To><StopPointRef>A1</StopPointRef></To>
      </JourneyPatternTimingLink>
    </JourneyPatternSection>
    <JourneyPatternSection id="EMPTY"/>
  </JourneyPatternSections>
  <Operators>
    <Operator>
      <TradingName>Drift Coaches</TradingName>
    </Operator>
  </Operators>
</TransXChange>`

// unqualified returns doc with the TransXChange default namespace removed
func unqualified(doc string) string {
	return strings.Replace(doc, ` xmlns="`+txcNamespace+`"`, "", 1)
}

func mustDocument(t *testing.T, name, xmlDoc string, strategy Strategy) *Document {
	t.Helper()
	root, err := ParseBytes([]byte(xmlDoc))
	require.NoError(t, err)
	return NewDocument(name, root, strategy)
}
